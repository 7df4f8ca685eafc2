package spacedrep

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Rating is the learner's self-assessed recall quality for a single review,
// on the SM-2 scale of 0 (blackout) to 5 (perfect).
type Rating int

const (
	RatingBlackout          Rating = 0 // Complete blackout, nothing recalled.
	RatingIncorrect         Rating = 1 // Wrong, but remembered on seeing the answer.
	RatingIncorrectFamiliar Rating = 2 // Wrong, but the answer felt familiar.
	RatingCorrectDifficult  Rating = 3 // Correct with serious effort.
	RatingCorrectHesitation Rating = 4 // Correct after some hesitation.
	RatingPerfect           Rating = 5 // Correct with no hesitation.
)

// PassThreshold is the lowest rating that counts as a successful recall.
const PassThreshold = RatingCorrectDifficult

var ratingNames = [...]string{
	RatingBlackout:          "blackout",
	RatingIncorrect:         "incorrect",
	RatingIncorrectFamiliar: "familiar",
	RatingCorrectDifficult:  "difficult",
	RatingCorrectHesitation: "hesitant",
	RatingPerfect:           "perfect",
}

// AllRatings returns every valid rating from lowest to highest.
func AllRatings() []Rating {
	return []Rating{
		RatingBlackout,
		RatingIncorrect,
		RatingIncorrectFamiliar,
		RatingCorrectDifficult,
		RatingCorrectHesitation,
		RatingPerfect,
	}
}

// IsValid reports whether r lies in [0,5].
func (r Rating) IsValid() bool {
	return r >= RatingBlackout && r <= RatingPerfect
}

// Passed reports whether r counts as a successful recall (>= 3).
func (r Rating) Passed() bool {
	return r >= PassThreshold
}

// String returns the rating name, or "Rating(n)" for out-of-range values.
func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// Validate returns ErrInvalidRating when r is outside [0,5].
func (r Rating) Validate() error {
	if !r.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return nil
}

// ParseRating accepts either the numeric form ("4") or a rating name ("hesitant").
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		r := Rating(n)
		return r, r.Validate()
	}
	for i, name := range ratingNames {
		if name == s {
			return Rating(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// MarshalJSON encodes the rating as its integer value.
func (r Rating) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(int(r))
}

// UnmarshalJSON decodes an integer rating and rejects out-of-range values.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRating, data)
	}
	v := Rating(n)
	if err := v.Validate(); err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalText lets ratings be used as JSON object keys.
func (r Rating) MarshalText() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return []byte(strconv.Itoa(int(r))), nil
}

// UnmarshalText is the inverse of MarshalText.
func (r *Rating) UnmarshalText(text []byte) error {
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
