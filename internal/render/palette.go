package render

import (
	"image/color"
	"strconv"
	"strings"
)

var named = map[string]string{
	"white": "#ffffff",
	"black": "#000000",
}

// palette holds the utility-class colours plans are written with.
var palette = map[string][9]string{
	"gray":    {"#f3f4f6", "#e5e7eb", "#d1d5db", "#9ca3af", "#6b7280", "#4b5563", "#374151", "#1f2937", "#111827"},
	"slate":   {"#f1f5f9", "#e2e8f0", "#cbd5e1", "#94a3b8", "#64748b", "#475569", "#334155", "#1e293b", "#0f172a"},
	"sky":     {"#e0f2fe", "#bae6fd", "#7dd3fc", "#38bdf8", "#0ea5e9", "#0284c7", "#0369a1", "#075985", "#0c4a6e"},
	"blue":    {"#dbeafe", "#bfdbfe", "#93c5fd", "#60a5fa", "#3b82f6", "#2563eb", "#1d4ed8", "#1e40af", "#1e3a8a"},
	"indigo":  {"#e0e7ff", "#c7d2fe", "#a5b4fc", "#818cf8", "#6366f1", "#4f46e5", "#4338ca", "#3730a3", "#312e81"},
	"purple":  {"#f3e8ff", "#e9d5ff", "#d8b4fe", "#c084fc", "#a855f7", "#9333ea", "#7e22ce", "#6b21a8", "#581c87"},
	"pink":    {"#fce7f3", "#fbcfe8", "#f9a8d4", "#f472b6", "#ec4899", "#db2777", "#be185d", "#9d174d", "#831843"},
	"red":     {"#fee2e2", "#fecaca", "#fca5a5", "#f87171", "#ef4444", "#dc2626", "#b91c1c", "#991b1b", "#7f1d1d"},
	"orange":  {"#ffedd5", "#fed7aa", "#fdba74", "#fb923c", "#f97316", "#ea580c", "#c2410c", "#9a3412", "#7c2d12"},
	"yellow":  {"#fef9c3", "#fef08a", "#fde047", "#facc15", "#eab308", "#ca8a04", "#a16207", "#854d0e", "#713f12"},
	"green":   {"#dcfce7", "#bbf7d0", "#86efac", "#4ade80", "#22c55e", "#16a34a", "#15803d", "#166534", "#14532d"},
	"emerald": {"#d1fae5", "#a7f3d0", "#6ee7b7", "#34d399", "#10b981", "#059669", "#047857", "#065f46", "#064e3b"},
}

// ParseColor accepts utility classes ("bg-sky-500", "text-white",
// "border-gray-700/50"), hex colours and rgb()/rgba().
func ParseColor(s string) (color.NRGBA, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return color.NRGBA{}, false
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s)
	}
	if strings.HasPrefix(s, "rgb") {
		return parseRGB(s)
	}

	for _, prefix := range []string{"bg-", "text-", "border-"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}

	alpha := 1.0
	if i := strings.IndexByte(s, '/'); i >= 0 {
		pct, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return color.NRGBA{}, false
		}
		alpha = float64(pct) / 100
		s = s[:i]
	}

	if s == "transparent" {
		return color.NRGBA{}, true
	}
	if hex, ok := named[s]; ok {
		c, _ := parseHex(hex)
		return withAlpha(c, alpha), true
	}

	i := strings.LastIndexByte(s, '-')
	if i < 0 {
		return color.NRGBA{}, false
	}
	shades, ok := palette[s[:i]]
	if !ok {
		return color.NRGBA{}, false
	}
	shade, err := strconv.Atoi(s[i+1:])
	if err != nil || shade < 100 || shade > 900 || shade%100 != 0 {
		return color.NRGBA{}, false
	}
	c, _ := parseHex(shades[shade/100-1])
	return withAlpha(c, alpha), true
}

func parseHex(s string) (color.NRGBA, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

func parseRGB(s string) (color.NRGBA, bool) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return color.NRGBA{}, false
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, false
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return color.NRGBA{}, false
		}
		ch[i] = uint8(n)
	}
	c := color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: 0xff}
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		c = withAlpha(c, a)
	}
	return c, true
}

func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(clamp01(a*float64(c.A)/255) * 255)
	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
