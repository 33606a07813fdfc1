package bookmark

import (
	"errors"
	"math/rand"

	"github.com/GR-MARTINS/bookmark-back-end/pkg/bookmarks/models"
	"gorm.io/gorm"
)

// Base58: no 0, O, I or l.
const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Short codes start at 3 characters and widen when the space gets crowded.
var (
	shortURLLengths  = []int{3, 6, 12}
	attemptsPerWidth = 10
)

var errShortURLExhausted = errors.New("could not allocate a unique short url")

func randomCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// GenerateShortURL returns a code not currently used by any bookmark.
func GenerateShortURL(db *gorm.DB) (string, error) {
	for _, length := range shortURLLengths {
		for attempt := 0; attempt < attemptsPerWidth; attempt++ {
			code := randomCode(length)
			var count int64
			if err := db.Model(&models.Bookmark{}).Where("short_url = ?", code).Count(&count).Error; err != nil {
				return "", err
			}
			if count == 0 {
				return code, nil
			}
		}
	}
	return "", errShortURLExhausted
}
