// Package tradinghttp 暴露模拟交易的 REST 接口。
// 表现层只做编解码与状态码映射，业务判定全部在 trading.Service。
package tradinghttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stocksim/internal/logger"
	"stocksim/internal/trading"
)

// Server 包装 gin 引擎与监听地址。
type Server struct {
	addr   string
	router *gin.Engine
}

// NewServer 构建 HTTP server 并挂载 /api/trading 路由。
func NewServer(addr string, service *trading.Service) (*Server, error) {
	if service == nil {
		return nil, errors.New("http server requires trading service")
	}
	if addr == "" {
		addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tradingRouter := NewRouter(service)
	tradingRouter.Register(router.Group("/api/trading"))

	return &Server{addr: addr, router: router}, nil
}

// Start 启动 HTTP 服务，ctx 取消时优雅关停。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP 服务启动 addr=%s", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// Engine 暴露底层 gin 引擎（测试用）。
func (s *Server) Engine() *gin.Engine {
	if s == nil {
		return nil
	}
	return s.router
}

// requestLogger 为每个请求生成 request id 并记录访问日志。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", reqID)
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Infof("HTTP %s %s status=%d dur=%s client=%s req_id=%s", method, fullPath, status, dur.Truncate(time.Millisecond), client, reqID)
	}
}
