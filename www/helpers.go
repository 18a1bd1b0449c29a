package www

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"timeAgo": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			d := time.Since(t)
			switch {
			case d < time.Minute:
				return "just now"
			case d < time.Hour:
				return plural(int(d.Minutes()), "minute")
			case d < 24*time.Hour:
				return plural(int(d.Hours()), "hour")
			default:
				return plural(int(d.Hours()/24), "day")
			}
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("2006-01-02 15:04:05")
		},
		"formatTimePtr": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.Format("2006-01-02 15:04:05")
		},
		"flagColor": func(allocated bool) string {
			if allocated {
				return "bg-blue-100 text-blue-800"
			}
			return "bg-green-100 text-green-800"
		},
		"statusColor": func(status string) string {
			switch status {
			case "live":
				return "bg-green-100 text-green-800"
			case "maintenance", "charging":
				return "bg-yellow-100 text-yellow-800"
			case "offline", "error":
				return "bg-red-100 text-red-800"
			default:
				return "bg-gray-100 text-gray-800"
			}
		},
		"join":  strings.Join,
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
