package locale

import "strings"

const (
	LanguageChinese = "zh"
	LanguageEnglish = "en"
)

// 翻译方向固定：中文原文 → 英文译文。
const (
	LanguagePrimary   = LanguageChinese
	LanguageSecondary = LanguageEnglish
)

// NormalizeLanguage 将各种语言标识（zh-CN、en_US 等）归一化为受支持的语言码，
// 无法识别时返回空串。
func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "zh") || trimmed == "cn" {
		return LanguageChinese
	}
	if strings.HasPrefix(trimmed, "en") {
		return LanguageEnglish
	}
	return ""
}

// Supported reports whether the language code is one of the locales we serve.
func Supported(language string) bool {
	return language == LanguageChinese || language == LanguageEnglish
}

// LanguageFromAcceptLanguage 从 Accept-Language 请求头猜测语言。
func LanguageFromAcceptLanguage(header string) string {
	trimmed := strings.ToLower(strings.TrimSpace(header))
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, "zh") {
		return LanguageChinese
	}
	if strings.Contains(trimmed, "en") {
		return LanguageEnglish
	}
	return ""
}

// HTMLLang 返回 Content-Language 响应头使用的完整语言标记。
func HTMLLang(language string) string {
	if NormalizeLanguage(language) == LanguageEnglish {
		return "en-US"
	}
	return "zh-CN"
}

// Pick returns the text matching the request language, defaulting to Chinese.
func Pick(language, english, chinese string) string {
	if NormalizeLanguage(language) == LanguageEnglish {
		if english != "" {
			return english
		}
		return chinese
	}
	if chinese != "" {
		return chinese
	}
	return english
}
