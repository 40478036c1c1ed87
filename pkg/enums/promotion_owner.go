package enums

import "fmt"

// PromotionOwnerType identifies who funds a promotion.
type PromotionOwnerType string

const (
	PromotionOwnerPlatform PromotionOwnerType = "platform"
	PromotionOwnerSeller   PromotionOwnerType = "seller"
)

var validPromotionOwnerTypes = []PromotionOwnerType{
	PromotionOwnerPlatform,
	PromotionOwnerSeller,
}

// String implements fmt.Stringer.
func (p PromotionOwnerType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromotionOwnerType.
func (p PromotionOwnerType) IsValid() bool {
	for _, candidate := range validPromotionOwnerTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromotionOwnerType converts raw input into a PromotionOwnerType.
func ParsePromotionOwnerType(value string) (PromotionOwnerType, error) {
	for _, candidate := range validPromotionOwnerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion owner %q", value)
}
