package server

// Route path constants
const (
	RouteWebSocket   = "/ws"
	RouteOAuth2Token = "/oauth2/token"
	RouteUserInfo    = "/userinfo"
	RouteHealth      = "/healthz"
	RouteMetrics     = "/metrics"
)
