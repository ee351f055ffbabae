package domain

// ClearProxies is a nil-slice sentinel.
//
// It is used by ReplaceProxiesForSubscription-style APIs to explicitly
// indicate "clear all existing proxies for the subscription", as opposed
// to "no proxies provided".
var ClearProxies []ProxyConfig
