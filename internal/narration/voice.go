package narration

import "strings"

// Voice describes one speech voice offered by the host.
type Voice struct {
	Name         string `json:"name"`
	Lang         string `json:"lang"`
	LocalService bool   `json:"localService"`
}

// PickVoice chooses the preferred voice from voices. It prefers Google English
// voices, then local English voices, then any English voice, then the first one.
func PickVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	preferences := []func(v Voice) bool{
		func(v Voice) bool { return strings.Contains(v.Name, "Google") && isEnglish(v) },
		func(v Voice) bool { return v.LocalService && isEnglish(v) },
		isEnglish,
	}
	for _, match := range preferences {
		for _, v := range voices {
			if match(v) {
				return v, true
			}
		}
	}
	return voices[0], true
}

func isEnglish(v Voice) bool {
	return strings.HasPrefix(v.Lang, "en")
}
