package vision

import (
	"strings"
	"unicode/utf8"

	"github.com/anime-shed/image-gallery-go/pkg/models"
)

const (
	tagConfidenceFloor = 0.5
	upstreamTagLimit   = 10
	minTagLength       = 3
	maxTagLength       = 49
)

// apiResponse is the subset of the Computer Vision v3.2 analyze payload we read
type apiResponse struct {
	Tags []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"tags"`
	Description struct {
		Captions []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"captions"`
	} `json:"description"`
	Color struct {
		DominantColors []string `json:"dominantColors"`
	} `json:"color"`
}

// colorNames maps the names the vision API reports, plus common CSS names
var colorNames = map[string]string{
	"black":     "#000000",
	"white":     "#FFFFFF",
	"grey":      "#808080",
	"gray":      "#808080",
	"silver":    "#C0C0C0",
	"red":       "#FF0000",
	"maroon":    "#800000",
	"crimson":   "#DC143C",
	"pink":      "#FFC0CB",
	"magenta":   "#FF00FF",
	"fuchsia":   "#FF00FF",
	"purple":    "#800080",
	"violet":    "#EE82EE",
	"indigo":    "#4B0082",
	"lavender":  "#E6E6FA",
	"blue":      "#0000FF",
	"navy":      "#000080",
	"teal":      "#008080",
	"cyan":      "#00FFFF",
	"aqua":      "#00FFFF",
	"turquoise": "#40E0D0",
	"green":     "#008000",
	"lime":      "#00FF00",
	"olive":     "#808000",
	"yellow":    "#FFFF00",
	"gold":      "#FFD700",
	"orange":    "#FFA500",
	"coral":     "#FF7F50",
	"salmon":    "#FA8072",
	"brown":     "#A52A2A",
	"chocolate": "#D2691E",
	"tan":       "#D2B48C",
	"beige":     "#F5F5DC",
	"ivory":     "#FFFFF0",
	"khaki":     "#F0E68C",
}

func normalize(resp *apiResponse) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Tags:             normalizeTags(resp),
		Description:      normalizeDescription(resp),
		DominantColors:   normalizeColors(resp.Color.DominantColors),
		ConfidenceScores: make(map[string]float64, len(resp.Tags)),
	}
	for _, tag := range resp.Tags {
		result.ConfidenceScores[tag.Name] = tag.Confidence
	}
	return result
}

func normalizeTags(resp *apiResponse) []string {
	confident := make([]string, 0, upstreamTagLimit)
	for _, tag := range resp.Tags {
		if tag.Confidence > tagConfidenceFloor {
			confident = append(confident, tag.Name)
		}
		if len(confident) == upstreamTagLimit {
			break
		}
	}
	return cleanTags(confident)
}

// cleanTags lowercases, trims, length-filters and dedupes tags, keeping
// source order. Applying it to its own output is a no-op.
func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, models.MaxTags)
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		n := utf8.RuneCountInString(tag)
		if n < minTagLength || n > maxTagLength {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		cleaned = append(cleaned, tag)
		if len(cleaned) == models.MaxTags {
			break
		}
	}
	return cleaned
}

func normalizeDescription(resp *apiResponse) string {
	if len(resp.Description.Captions) == 0 {
		return ""
	}
	return cleanDescription(resp.Description.Captions[0].Text)
}

func cleanDescription(text string) string {
	text = strings.TrimSpace(text)
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	if utf8.RuneCountInString(text) <= models.MaxDescriptionLength {
		return text
	}
	return string([]rune(text)[:models.MaxDescriptionLength])
}

func normalizeColors(colors []string) []string {
	if len(colors) > models.MaxColors {
		colors = colors[:models.MaxColors]
	}
	formatted := make([]string, 0, len(colors))
	for _, color := range colors {
		hex, ok := formatColor(color)
		if !ok {
			log.WithField("color", color).Warn("Dropping unrecognized dominant color")
			continue
		}
		formatted = append(formatted, hex)
	}
	return formatted
}

// formatColor returns color as an uppercase #RRGGBB string
func formatColor(color string) (string, bool) {
	color = strings.TrimSpace(color)
	if color == "" {
		return "", false
	}

	digits := strings.TrimPrefix(color, "#")
	if isHex(digits) {
		switch len(digits) {
		case 6:
			return "#" + strings.ToUpper(digits), true
		case 3:
			var b strings.Builder
			b.WriteByte('#')
			for _, d := range strings.ToUpper(digits) {
				b.WriteRune(d)
				b.WriteRune(d)
			}
			return b.String(), true
		}
	}
	if strings.HasPrefix(color, "#") {
		return "", false
	}

	hex, ok := colorNames[strings.ToLower(color)]
	return hex, ok
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
