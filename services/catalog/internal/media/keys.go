package media

import (
	"mime"
	"strings"

	"github.com/example/cinema-platform/services/catalog/internal/domain"
)

// Object key layout shared with the users and payments services.

func PosterKey(kind domain.Kind, name string) string {
	return "poster/" + kind.Folder() + "/" + name + "/poster.jpg"
}

func PreviewKey(kind domain.Kind, name string) string {
	return "poster/" + kind.Folder() + "/" + name + "/preview.jpg"
}

func SynopsisKey(kind domain.Kind, name string) string {
	return "poster/" + kind.Folder() + "/" + name + "/text.jpg"
}

func VideoKey(kind domain.Kind, name string) string {
	return kind.Folder() + "/" + name + ".mp4"
}

func ActorPosterKey(name string) string {
	return "poster/actors/" + name + ".jpg"
}

// AvatarPrefix matches an avatar of any extension.
func AvatarPrefix(userID string) string {
	return "userimage/" + userID + "."
}

// AvatarKey derives the extension from contentType; unknown types get ".bin".
func AvatarKey(userID, contentType string) string {
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
		for _, e := range exts {
			if e == ".jpg" || e == ".png" {
				ext = e
				break
			}
		}
	}
	return "userimage/" + userID + strings.ToLower(ext)
}

func ReceiptKey(orderNumber string) string {
	return "receipts/" + orderNumber + ".pdf"
}
