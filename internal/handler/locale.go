package handler

import (
	"github.com/duolog/internal/locale"
	"github.com/gin-gonic/gin"
)

const localeContextKey = "__request_locale"

// LocaleMiddleware resolves request language and sets headers for downstream caching.
func (a *API) LocaleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		language := a.requestLanguage(c)
		c.Header("Content-Language", locale.HTMLLang(language))
		c.Header("Vary", "Accept-Language")
		c.Next()
	}
}

// requestLanguage 解析请求语言：?lang 优先，其次 Accept-Language，最后回退主语言。
func (a *API) requestLanguage(c *gin.Context) string {
	if cached, exists := c.Get(localeContextKey); exists {
		if language, ok := cached.(string); ok {
			return language
		}
	}

	language := locale.NormalizeLanguage(c.Query("lang"))
	if language == "" {
		language = locale.LanguageFromAcceptLanguage(c.GetHeader("Accept-Language"))
	}
	if language == "" {
		language = locale.LanguagePrimary
	}

	c.Set(localeContextKey, language)
	return language
}
