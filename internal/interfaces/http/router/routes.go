package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 书籍工作区
	books := v1.Group("/books")
	{
		books.GET("", h.Books.ListBooks)
		books.POST("", h.Books.CreateBook)
		books.GET("/:id", h.Books.GetBook)
		books.PUT("/:id", h.Books.UpdateBook)
		books.GET("/:id/workspace", h.Books.GetWorkspace)
		books.POST("/:id/expand-lore", h.Books.ExpandLore)
		books.POST("/:id/outline/plan-next-three", h.Books.PlanNextThree)
		books.POST("/:id/reflex-chapter", h.Books.ReflexChapter)

		// 章节
		books.POST("/:id/chapters/batch-generate-three", h.Books.BatchGenerateThree)
		books.GET("/:id/chapters/:chapterId", h.Books.GetChapter)
		books.PUT("/:id/chapters/:chapterId", h.Books.UpdateChapter)
		books.POST("/:id/chapters/:chapterId/generate", h.Books.GenerateChapter)

		// 统计与阅读
		books.GET("/:id/progress", h.Books.Progress)
		books.GET("/:id/stats", h.Books.Stats)
		books.GET("/:id/clues", h.Books.Clues)
		books.GET("/:id/read", h.Books.ReadBook)
	}

	// 文风预设
	styles := v1.Group("/styles")
	{
		styles.GET("", h.Styles.ListStyles)
		styles.POST("", h.Styles.CreateStyle)
		styles.PUT("/:id", h.Styles.UpdateStyle)
		styles.DELETE("/:id", h.Styles.DeleteStyle)
	}

	// 全局设置
	settings := v1.Group("/settings")
	{
		settings.GET("", h.Settings.GetSettings)
		settings.PUT("", h.Settings.UpdateSettings)
		settings.POST("/test-connection", h.Settings.TestConnection)
	}
}
