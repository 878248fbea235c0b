package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// RegisterRoutes mounts the health check and sends every other path and
// method to the Dispatcher.
func RegisterRoutes(r *gin.Engine, d *Dispatcher) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		req, err := requestFromGin(c)
		if err != nil {
			d.logger.Warn("read request body failed", zap.Error(err))
			writeResponse(c, d.respond(http.StatusBadRequest, ErrValidation.Error(), nil))
			return
		}
		writeResponse(c, d.Dispatch(c.Request.Context(), req))
	})
}

func requestFromGin(c *gin.Context) (Request, error) {
	req := Request{
		Method:      c.Request.Method,
		Path:        c.Request.URL.Path,
		Headers:     make(map[string]string, len(c.Request.Header)),
		QueryParams: map[string]string{},
	}
	for k := range c.Request.Header {
		req.Headers[k] = c.Request.Header.Get(k)
	}
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			req.QueryParams[k] = v[0]
		}
	}

	if c.Request.Body != nil {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			return Request{}, err
		}
		req.Body = string(body)
	}
	return req, nil
}

func writeResponse(c *gin.Context, resp Response) {
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	if resp.Body == "" {
		c.Status(resp.StatusCode)
		return
	}
	c.Data(resp.StatusCode, resp.Headers["Content-Type"], []byte(resp.Body))
}
