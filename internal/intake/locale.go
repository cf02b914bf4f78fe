package intake

import (
	"fmt"
	"sort"
	"strings"
)

// Locale holds the display strings used when exporting records.
type Locale struct {
	Tag            string
	Headers        []string
	FilenamePrefix string
	TimeLayout     string
	FormalLabel    string
	InternLabel    string
}

var locales = map[string]Locale{
	"zh-CN": {
		Tag:            "zh-CN",
		Headers:        []string{"ID", "姓名", "手机号", "部门", "员工类型", "提交时间", "IP地址"},
		FilenamePrefix: "员工信息",
		TimeLayout:     "2006/1/2 15:04:05",
		FormalLabel:    "正式员工",
		InternLabel:    "实习生",
	},
	"en": {
		Tag:            "en",
		Headers:        []string{"ID", "Name", "Phone", "Department", "Type", "Submission Time", "Origin Address"},
		FilenamePrefix: "employees",
		TimeLayout:     "1/2/2006, 3:04:05 PM",
		FormalLabel:    "formal employee",
		InternLabel:    "intern",
	},
}

// DefaultLocale is zh-CN.
func DefaultLocale() Locale {
	return locales["zh-CN"]
}

// LookupLocale finds a locale by tag, ignoring case.
func LookupLocale(tag string) (Locale, error) {
	for k, l := range locales {
		if strings.EqualFold(k, tag) {
			return l, nil
		}
	}
	return Locale{}, fmt.Errorf("unsupported locale %q (supported: %s)", tag, strings.Join(LocaleTags(), ", "))
}

// LocaleTags lists the supported locale tags in sorted order.
func LocaleTags() []string {
	tags := make([]string, 0, len(locales))
	for k := range locales {
		tags = append(tags, k)
	}
	sort.Strings(tags)
	return tags
}

// IsFormal reports whether t is the formal-employee label of any locale.
func IsFormal(t string) bool {
	for _, l := range locales {
		if t == l.FormalLabel {
			return true
		}
	}
	return false
}

// IsIntern reports whether t is the intern label of any locale.
func IsIntern(t string) bool {
	for _, l := range locales {
		if t == l.InternLabel {
			return true
		}
	}
	return false
}
