package reconcile

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/your-org/fdsync/internal/models"
)

// screenshotTail is the fixed-width end of a stored screenshot name:
// four one-character directories, 32 hex digits and a 3-character extension.
const screenshotTail = len("a/b/c/d/") + 32 + len(".jpg")

// DeriveLogFields computes the public screenshot URL and the hyphenated log
// UUID from a stored screenshot name such as
// "2024/a/b/c/d/1234567890abcdef1234567890abcdef.jpg".
// The group namespace is spliced in front of the fixed-width tail.
func DeriveLogFields(prefix string, group models.TenantGroup, screenshot string) (url, logUUID string, err error) {
	n := len(screenshot)
	if n < screenshotTail {
		return "", "", fmt.Errorf("%w: %q is shorter than %d bytes", ErrMalformedFilename, screenshot, screenshotTail)
	}
	tail := screenshot[n-screenshotTail:]
	for _, i := range []int{1, 3, 5, 7} {
		if tail[i] != '/' {
			return "", "", fmt.Errorf("%w: %q has no four-level directory prefix", ErrMalformedFilename, screenshot)
		}
	}
	if screenshot[n-4] != '.' {
		return "", "", fmt.Errorf("%w: %q has no 3-character extension", ErrMalformedFilename, screenshot)
	}
	id, err := uuid.Parse(screenshot[n-36 : n-4])
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %v", ErrMalformedFilename, screenshot, err)
	}

	url = strings.TrimSuffix(prefix, "/") + "/" + screenshot[:n-screenshotTail] + group.Namespace() + "/" + tail
	return url, id.String(), nil
}
