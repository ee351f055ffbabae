package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"isolate/backend/domain"
	"isolate/backend/repository"
	"isolate/backend/service/proxies"
	"isolate/backend/service/share"
	subscriptionsvc "isolate/backend/service/subscription"
)

type Router struct {
	proxies      *proxies.Service
	subscription *subscriptionsvc.Service
	settings     repository.SettingsRepository
	store        repository.Snapshottable
}

func NewRouter(proxySvc *proxies.Service, subscriptionSvc *subscriptionsvc.Service, settings repository.SettingsRepository, store repository.Snapshottable) *gin.Engine {
	r := &Router{
		proxies:      proxySvc,
		subscription: subscriptionSvc,
		settings:     settings,
		store:        store,
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	r.register(engine)
	return engine
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func (r *Router) register(engine *gin.Engine) {
	engine.Use(corsMiddleware())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
	})

	engine.GET("/snapshot", func(c *gin.Context) {
		c.JSON(http.StatusOK, r.store.Snapshot())
	})

	proxyGroup := engine.Group("/proxies")
	{
		proxyGroup.GET("", r.listProxies)
		proxyGroup.POST("", r.createProxy)
		proxyGroup.PUT(":id", r.updateProxy)
		proxyGroup.DELETE(":id", r.deleteProxy)
		proxyGroup.POST(":id/activate", r.activateProxy)
		proxyGroup.GET(":id/export", r.exportProxy)
		proxyGroup.POST("/parse", r.parseShareLink)
		proxyGroup.POST("/import", r.importShareLink)
	}

	subscriptions := engine.Group("/subscriptions")
	{
		subscriptions.GET("", r.listSubscriptions)
		subscriptions.POST("/import", r.importSubscription)
		subscriptions.POST("/preview", r.previewSubscription)
		subscriptions.PUT(":id", r.updateSubscription)
		subscriptions.DELETE(":id", r.deleteSubscription)
		subscriptions.POST(":id/refresh", r.refreshSubscription)
		subscriptions.GET(":id/proxies", r.listSubscriptionProxies)
	}

	settings := engine.Group("/settings")
	{
		settings.GET("/frontend", r.getFrontendSettings)
		settings.PUT("/frontend", r.saveFrontendSettings)
	}
}

// ==================== 代理记录 ====================

type proxyRequest struct {
	Name      string `json:"name"`
	Protocol  string `json:"protocol" binding:"required"`
	Server    string `json:"server" binding:"required"`
	Port      int    `json:"port" binding:"required"`
	UUID      string `json:"uuid"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Method    string `json:"method"`
	TLS       bool   `json:"tls"`
	SNI       string `json:"sni"`
	Transport string `json:"transport"`
}

func buildProxyFromRequest(req proxyRequest) domain.ProxyConfig {
	return domain.ProxyConfig{
		Name:      strings.TrimSpace(req.Name),
		Protocol:  domain.ProxyProtocol(req.Protocol),
		Server:    strings.TrimSpace(req.Server),
		Port:      req.Port,
		UUID:      req.UUID,
		Username:  req.Username,
		Password:  req.Password,
		Method:    req.Method,
		TLS:       req.TLS,
		SNI:       req.SNI,
		Transport: req.Transport,
	}
}

func (r *Router) listProxies(c *gin.Context) {
	items, err := r.proxies.List(c.Request.Context())
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (r *Router) createProxy(c *gin.Context) {
	var req proxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := r.proxies.Create(c.Request.Context(), buildProxyFromRequest(req))
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (r *Router) updateProxy(c *gin.Context) {
	var req proxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := r.proxies.Update(c.Request.Context(), c.Param("id"), buildProxyFromRequest(req))
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (r *Router) deleteProxy(c *gin.Context) {
	if err := r.proxies.Delete(c.Request.Context(), c.Param("id")); err != nil {
		r.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) activateProxy(c *gin.Context) {
	activated, err := r.proxies.SetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, activated)
}

func (r *Router) exportProxy(c *gin.Context) {
	link, err := r.proxies.ExportLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

type shareLinkRequest struct {
	Link string `json:"link" binding:"required"`
}

// parseShareLink 解析单条分享链接（只解析不落库，供人工确认）
func (r *Router) parseShareLink(c *gin.Context) {
	var req shareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := r.proxies.Preview(req.Link)
	if err != nil {
		r.handleError(c, err)
		return
	}
	if res.IsZero() {
		badRequest(c, errors.New("link is required"))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) importShareLink(c *gin.Context) {
	var req shareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := r.proxies.ImportLink(c.Request.Context(), req.Link)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ==================== 订阅 ====================

type subscriptionRequest struct {
	Name      string `json:"name"`
	SourceURL string `json:"sourceUrl"`
	Payload   string `json:"payload"`
	// AutoUpdateInterval 自动更新间隔（分钟，0 表示不自动更新）
	AutoUpdateInterval int `json:"autoUpdateInterval"`
}

func (r *Router) listSubscriptions(c *gin.Context) {
	items, err := r.subscription.List(c.Request.Context())
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (r *Router) importSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.SourceURL) == "" && strings.TrimSpace(req.Payload) == "" {
		badRequest(c, errors.New("sourceUrl or payload is required"))
		return
	}
	created, err := r.subscription.Create(c.Request.Context(), domain.Subscription{
		Name:               req.Name,
		SourceURL:          req.SourceURL,
		Payload:            req.Payload,
		AutoUpdateInterval: time.Duration(req.AutoUpdateInterval) * time.Minute,
	})
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type subscriptionPreviewRequest struct {
	SourceURL string `json:"sourceUrl"`
	Payload   string `json:"payload"`
}

// previewSubscription 拉取/解析订阅为候选记录，不落库
func (r *Router) previewSubscription(c *gin.Context) {
	var req subscriptionPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.SourceURL) != "" {
		result, err := r.subscription.PreviewURL(c.Request.Context(), req.SourceURL)
		if err != nil {
			r.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}
	if strings.TrimSpace(req.Payload) == "" {
		badRequest(c, errors.New("sourceUrl or payload is required"))
		return
	}
	c.JSON(http.StatusOK, r.subscription.PreviewPayload(req.Payload))
}

func (r *Router) updateSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	current, err := r.subscription.Get(c.Request.Context(), id)
	if err != nil {
		r.handleError(c, err)
		return
	}
	current = current.ApplyPatch(domain.Subscription{
		Name:      strings.TrimSpace(req.Name),
		SourceURL: strings.TrimSpace(req.SourceURL),
	})
	current.AutoUpdateInterval = time.Duration(req.AutoUpdateInterval) * time.Minute
	updated, err := r.subscription.Update(c.Request.Context(), id, current)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (r *Router) deleteSubscription(c *gin.Context) {
	if err := r.subscription.Delete(c.Request.Context(), c.Param("id")); err != nil {
		r.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) refreshSubscription(c *gin.Context) {
	id := c.Param("id")
	if err := r.subscription.Sync(c.Request.Context(), id); err != nil {
		r.handleError(c, err)
		return
	}
	sub, err := r.subscription.Get(c.Request.Context(), id)
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (r *Router) listSubscriptionProxies(c *gin.Context) {
	items, err := r.subscription.Proxies(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proxies": items})
}

// ==================== 设置 ====================

func (r *Router) getFrontendSettings(c *gin.Context) {
	settings, err := r.settings.GetFrontend(c.Request.Context())
	if err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (r *Router) saveFrontendSettings(c *gin.Context) {
	var settings map[string]interface{}
	if err := c.ShouldBindJSON(&settings); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := r.settings.UpdateFrontend(c.Request.Context(), settings); err != nil {
		r.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// ==================== 错误映射 ====================

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (r *Router) handleError(c *gin.Context, err error) {
	// 分享链接解析失败属于调用方输入问题
	if errors.Is(err, share.ErrUnsupportedScheme) ||
		errors.Is(err, share.ErrMalformedURI) ||
		errors.Is(err, share.ErrBase64Decode) ||
		errors.Is(err, share.ErrJSONDecode) ||
		errors.Is(err, share.ErrFieldValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if errors.Is(err, repository.ErrInvalidID) || errors.Is(err, repository.ErrInvalidData) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if errors.Is(err, repository.ErrProxyNotFound) ||
		errors.Is(err, repository.ErrSubscriptionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
