package server

import (
	"github.com/gin-gonic/gin"
)

// NewDefaultGinEngine 创建不带默认中间件的干净引擎,
// 中间件集合与顺序由调用方显式注入。
func NewDefaultGinEngine(middlewares ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(middlewares...)
	return engine
}
