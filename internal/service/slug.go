package service

import (
	"strings"
	"unicode"
)

// Slugify 从标题派生 URL slug：小写化，连续的非字母数字字符折叠为单个连字符，
// 去掉首尾连字符。中文等 Unicode 字母会被保留，URL 层负责转义。
func Slugify(title string) string {
	var builder strings.Builder
	pendingHyphen := false

	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if pendingHyphen && builder.Len() > 0 {
				builder.WriteRune('-')
			}
			pendingHyphen = false
			builder.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return builder.String()
}
