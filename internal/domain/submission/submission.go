package submission

import (
	"fmt"
	"path"
	"strings"

	"github.com/JesseCorbett/minawan-maker/internal/domain/community"
)

// A submission is the fixed file set a user uploads for one community, laid
// out as {community}/{userId}/{filename}. The presence of the canonical
// original file is the review trigger; the resize pipeline is expected to
// have produced the variants by then.
var VariantFiles = []string{
	"original_256x256.avif",
	"original_256x256.png",
	"original_512x512.avif",
	"original_512x512.png",
	"original_64x64.avif",
	"original_64x64.png",
}

var originalExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".avif": true,
}

var ErrNotSubmissionPath = fmt.Errorf("not a submission path")

type Path struct {
	Community community.Community
	UserID    string
	FileName  string
}

// ParsePath validates the 3-segment convention and the community segment.
// Anything else in the bucket (catalog documents, backfill assets, unrelated
// objects) fails with ErrNotSubmissionPath.
func ParsePath(objectKey string) (Path, error) {
	parts := strings.Split(objectKey, "/")
	if len(parts) != 3 {
		return Path{}, fmt.Errorf("%w: %q", ErrNotSubmissionPath, objectKey)
	}

	comm, err := community.Parse(parts[0])
	if err != nil {
		return Path{}, fmt.Errorf("%w: %q", ErrNotSubmissionPath, objectKey)
	}

	userID := strings.TrimSpace(parts[1])
	fileName := strings.TrimSpace(parts[2])
	if userID == "" || fileName == "" {
		return Path{}, fmt.Errorf("%w: %q", ErrNotSubmissionPath, objectKey)
	}

	return Path{Community: comm, UserID: userID, FileName: fileName}, nil
}

// IsOriginal reports whether the file name is the canonical original image,
// original.<ext> for a recognized image extension.
func IsOriginal(fileName string) bool {
	ext := strings.ToLower(path.Ext(fileName))
	if !originalExtensions[ext] {
		return false
	}
	return strings.TrimSuffix(fileName, ext) == "original"
}

func (p Path) ObjectKey() string {
	return fmt.Sprintf("%s/%s/%s", p.Community, p.UserID, p.FileName)
}

// Prefix is the storage prefix owning every file of the user's submission.
func (p Path) Prefix() string {
	return fmt.Sprintf("%s/%s/", p.Community, p.UserID)
}

// VariantKey resolves a fixed variant file name inside the submission folder.
func (p Path) VariantKey(variantFile string) string {
	return fmt.Sprintf("%s/%s/%s", p.Community, p.UserID, variantFile)
}
