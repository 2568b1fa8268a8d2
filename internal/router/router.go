package router

import (
	"github.com/duolog/internal/handler"
	"github.com/gin-gonic/gin"
)

// Setup 配置 Gin 引擎和路由：/api 为公开读接口，/admin/api 为认证后的写接口。
func Setup(api *handler.API) *gin.Engine {
	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/api")
	public.Use(api.LocaleMiddleware())
	{
		public.GET("/posts", api.ListPosts)
		public.GET("/posts/:slug", api.GetPost)
		public.GET("/posts/:slug/comments", api.ListComments)
		public.POST("/posts/:slug/comments", api.CreateComment)
	}

	admin := r.Group("/admin/api")
	{
		admin.POST("/login", api.Login)

		auth := admin.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.GET("/posts", api.AdminListPosts)
			auth.GET("/posts/:id", api.AdminGetPost)
			auth.POST("/posts", api.AdminCreatePost)
			auth.PUT("/posts/:id", api.AdminUpdatePost)
			auth.DELETE("/posts/:id", api.AdminDeletePost)
			auth.POST("/posts/:id/translate", api.AdminTranslatePost)
			auth.POST("/ai/summary", api.AdminSummarizePost)

			auth.DELETE("/comments/:id", api.AdminDeleteComment)
		}
	}

	return r
}
