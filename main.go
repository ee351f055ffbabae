package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"isolate/backend/api"
	"isolate/backend/persist"
	"isolate/backend/repository"
	"isolate/backend/repository/events"
	"isolate/backend/repository/memory"
	"isolate/backend/service/proxies"
	subscriptionsvc "isolate/backend/service/subscription"
	"isolate/backend/tasks"
)

func main() {
	addr := flag.String("addr", ":19080", "HTTP 服务监听地址")
	statePath := flag.String("state", "data/state.json", "状态文件路径")
	dev := flag.Bool("dev", false, "开发模式（gin debug 日志）")
	flag.Parse()

	if *dev {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 事件总线
	bus := events.NewBus()

	// 2. 内存存储
	memStore := memory.NewStore(bus)

	// 3. 加载持久化状态（schemaVersion 不匹配时拒绝启动，避免覆盖 state 文件）
	state, err := persist.Load(*statePath)
	if err != nil {
		log.Fatalf("[main] 加载状态失败: %v", err)
	}
	memStore.LoadState(state)

	// 4. 仓储层
	proxyRepo := memory.NewProxyRepo(memStore)
	subRepo := memory.NewSubscriptionRepo(memStore)
	settingsRepo := memory.NewSettingsRepo(memStore)
	repos := repository.NewRepositories(memStore, proxyRepo, subRepo, settingsRepo)

	// 5. 服务层
	proxySvc := proxies.NewService(repos.Proxy())
	subSvc := subscriptionsvc.NewService(repos.Subscription(), repos.Proxy())

	// 6. 持久化（事件驱动防抖快照）
	snapshotter := persist.NewSnapshotter(*statePath, memStore)
	snapshotter.SubscribeEvents(bus)

	// 7. 后台任务（订阅自动刷新）
	tasks.NewScheduler(subSvc).Start(ctx)

	// 8. 路由
	router := api.NewRouter(proxySvc, subSvc, repos.Settings(), repos)

	srv := &http.Server{
		Addr:    *addr,
		Handler: router,
	}

	cleanupDone := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		<-ctx.Done()
		log.Println("[main] 收到退出信号，开始清理")

		if err := snapshotter.SaveNow(); err != nil {
			log.Printf("[main] 退出前保存状态失败: %v", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[main] HTTP 服务关闭失败: %v", err)
		}
	}()

	log.Printf("[main] 服务启动，监听 %s，状态文件 %s", *addr, *statePath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("[main] HTTP 服务异常退出: %v", err)
		stop()
		<-cleanupDone
		os.Exit(1)
	}
	<-cleanupDone
	log.Println("[main] 已退出")
}
