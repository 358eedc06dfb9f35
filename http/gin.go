package http

import "github.com/gin-gonic/gin"

// RegisterGin mounts the service's endpoints on a gin router.
func RegisterGin(r gin.IRouter, s *Service) {
	r.POST("/v1/requests", gin.WrapF(s.CreateHandler))
	r.POST("/v1/requests/private", gin.WrapF(s.CreatePrivateHandler))
	r.POST("/v1/settle", gin.WrapF(s.SettleHandler))
	r.POST("/v1/settle/private", gin.WrapF(s.SettlePrivateHandler))
	r.POST("/v1/sweep", gin.WrapF(s.SweepHandler))
	r.POST("/v1/sweep/private", gin.WrapF(s.SweepPrivateHandler))
}
