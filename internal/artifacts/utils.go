package artifacts

import "errors"

var (
	ErrNotFound   = errors.New("bento not found")
	ErrInvalidTag = errors.New("invalid bento tag")
)

func validTagPart(s string) bool {
	return len(s) <= 63 && tagPart.MatchString(s)
}
