package service

import "errors"

// 未找到类错误
var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
)

// 冲突类错误
var (
	ErrSlugExists        = errors.New("slug already exists in this language")
	ErrTranslationExists = errors.New("translation already exists")
)

// 校验类错误：在任何存储或外部调用之前返回
var (
	ErrTitleRequired          = errors.New("title is required")
	ErrContentRequired        = errors.New("content is required")
	ErrSlugRequired           = errors.New("slug could not be derived from the title")
	ErrInvalidStatus          = errors.New("invalid post status")
	ErrInvalidLanguage        = errors.New("unsupported language")
	ErrInvalidPage            = errors.New("page must not be negative")
	ErrInvalidPageSize        = errors.New("page size must be between 1 and 100")
	ErrInvalidSort            = errors.New("unsupported sort field or direction")
	ErrAuthorRequired         = errors.New("comment author is required")
	ErrCommentRequired        = errors.New("comment content is required")
	ErrSourceIsTranslation    = errors.New("post is already a translation")
	ErrTranslationUnsupported = errors.New("only translating the chinese original into english is supported")
)

// IsNotFound reports whether err belongs to the not-found category.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound) ||
		errors.Is(err, ErrCommentNotFound)
}

// IsConflict reports whether err belongs to the conflict category.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSlugExists) || errors.Is(err, ErrTranslationExists)
}

// IsValidation reports whether err belongs to the validation category.
func IsValidation(err error) bool {
	for _, candidate := range []error{
		ErrTitleRequired,
		ErrContentRequired,
		ErrSlugRequired,
		ErrInvalidStatus,
		ErrInvalidLanguage,
		ErrInvalidPage,
		ErrInvalidPageSize,
		ErrInvalidSort,
		ErrAuthorRequired,
		ErrCommentRequired,
		ErrSourceIsTranslation,
		ErrTranslationUnsupported,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
