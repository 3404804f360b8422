// Package api exposes the scale driver to operators over HTTP.
package api

import (
	"net/http"

	"github.com/arloliu/go-scale/correlator"
	"github.com/arloliu/go-scale/driver"
	"github.com/arloliu/go-scale/logger"
	"github.com/gin-gonic/gin"
)

// Dispatcher is the part of the driver used by the API. *driver.Driver implements it.
type Dispatcher interface {
	Broadcast(name string, op driver.Op) []driver.Result
	Devices() []driver.DeviceInfo
	Status() driver.Status
}

var _ Dispatcher = (*driver.Driver)(nil)

// DisplayRequest is the body of POST /broadcast/display.
type DisplayRequest struct {
	Text string `json:"text" binding:"required"`
}

// DeviceResult is the outcome of a broadcast on one device.
type DeviceResult struct {
	Device    string `json:"device"`
	Value     any    `json:"value"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// NewRouter creates the HTTP handler of the API.
func NewRouter(d Dispatcher, l logger.Logger) *gin.Engine {
	if l == nil {
		l = logger.GetLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(l))

	r.GET("/status", statusHandler(d))
	r.GET("/devices", devicesHandler(d))

	b := r.Group("/broadcast")
	b.POST("/display", displayHandler(d))
	for name, op := range driver.Ops() {
		b.POST("/"+name, broadcastHandler(d, name, op))
	}

	return r
}

func statusHandler(d Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Status())
	}
}

func devicesHandler(d Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Devices())
	}
}

func broadcastHandler(d Dispatcher, name string, op driver.Op) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, toDeviceResults(d.Broadcast(name, op)))
	}
}

func displayHandler(d Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DisplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}

		c.JSON(http.StatusOK, toDeviceResults(d.Broadcast(driver.OpDisplay, driver.DisplayOp(req.Text))))
	}
}

func toDeviceResults(results []driver.Result) []DeviceResult {
	out := make([]DeviceResult, 0, len(results))
	for _, res := range results {
		dr := DeviceResult{Device: res.DeviceID, Value: res.Value}
		if res.Err != nil {
			dr.Value = nil
			dr.Error = res.Err.Error()
			dr.ErrorKind = correlator.ErrorKind(res.Err)
		}
		out = append(out, dr)
	}

	return out
}

// respondError sends a structured JSON error response
func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"error": gin.H{
			"message": message,
			"status":  code,
		},
	})
	c.Abort()
}

func requestLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		l.Debug("http request", "method", c.Request.Method, "path", c.FullPath(), "status", c.Writer.Status())
	}
}
