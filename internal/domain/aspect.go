package domain

import "strings"

// ModelFamily groups models that share aspect ratio support.
type ModelFamily string

const (
	FamilyImage ModelFamily = "IMAGE"
	FamilyVideo ModelFamily = "VIDEO"
)

var imageAspectRatios = map[string]string{
	"1:1":  "1:1",
	"3:4":  "3:4",
	"4:3":  "4:3",
	"9:16": "9:16",
	"16:9": "16:9",
	"4:5":  "3:4",
	"5:4":  "4:3",
	"9:21": "9:16",
}

// NormalizeAspectRatio maps a requested ratio onto one the model family
// supports. Image models fall back to 1:1. Video models only render 16:9 and
// 9:16, so landscape and square inputs become 16:9 and the rest 9:16.
func NormalizeAspectRatio(ratio string, family ModelFamily) string {
	ratio = strings.TrimSpace(ratio)
	if family == FamilyVideo {
		switch ratio {
		case "16:9", "4:3", "5:4", "1:1":
			return "16:9"
		}
		return "9:16"
	}
	if mapped, ok := imageAspectRatios[ratio]; ok {
		return mapped
	}
	return "1:1"
}
