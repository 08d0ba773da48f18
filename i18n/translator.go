package i18n

import (
	"sort"
	"strings"
	"sync/atomic"
)

// Translator retrieves localized messages for issue codes.
// data provides optional values substituted for "{key}" placeholders (for
// example "expected" or "value").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"unknown_key":            "Unexpected property.",
		"required":               "This property is required, but not found.",
		"invalid_type":           "The value MUST be {expected}.",
		"invalid_format":         "The value is invalid format.",
		"invalid_value":          "The value MUST be {expected}.",
		"parse_error":            "The value could not be parsed.",
		"reference":              "The referenced entity is not included in this crate.",
		"dependency_unavailable": "The resource is not accessible.",
		"past_date":              "The value MUST be the date of past.",
		"future_date":            "The value MUST be the date of future.",
	},
	"ja": {
		"unknown_key":            "未定義のプロパティです。",
		"required":               "必須プロパティが見つかりません。",
		"invalid_type":           "値は {expected} でなければなりません。",
		"invalid_format":         "値の形式が不正です。",
		"invalid_value":          "値は {expected} でなければなりません。",
		"parse_error":            "値を解析できません。",
		"reference":              "参照先のエンティティがクレートに含まれていません。",
		"dependency_unavailable": "リソースにアクセスできません。",
		"past_date":              "値は過去の日付でなければなりません。",
		"future_date":            "値は未来の日付でなければなりません。",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		if msg, ok = dictionaries["en"][code]; !ok {
			return code
		}
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

var current atomic.Value // holds a translatorBox

type translatorBox struct{ Translator }

func init() { current.Store(translatorBox{dictTranslator{lang: "en"}}) }

// Languages returns the languages of the built-in dictionaries, sorted.
func Languages() []string {
	out := make([]string, 0, len(dictionaries))
	for lang := range dictionaries {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// SetLanguage switches the built-in Translator language. Unknown languages
// select English.
func SetLanguage(lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	current.Store(translatorBox{dictTranslator{lang: lang}})
}

// SetTranslator replaces the Translator. A nil tr restores the English
// dictionary.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	current.Store(translatorBox{tr})
}

// T renders the message of an issue code with the current Translator.
func T(code string, data map[string]string) string {
	return current.Load().(translatorBox).Message(code, data)
}
