package models

import (
	"strings"
	"time"
)

// Review represents a review owned by the review service.
// Its target is food when FoodID is set, restaurant when RestaurantID is set, general otherwise.
type Review struct {
	ID                   string   `json:"id,omitempty"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	FoodID               *string  `json:"foodId"`
	RestaurantID         *string  `json:"resturantId"`
	UserID               *string  `json:"userId"`
	ReactionCountLike    int      `json:"reactionCountLike"`
	ReactionCountDislike int      `json:"reactionCountDislike"`
	ReactionUsersLike    []string `json:"reactionUsersLike"`
	ReactionUsersDislike []string `json:"reactionUsersDislike"`
	Comments             []string `json:"comments"`
	CreatedAt            string   `json:"createdAt,omitempty"`
	UpdatedAt            string   `json:"updatedAt,omitempty"`
	Sentiment            *string  `json:"sentiment,omitempty"`
}

// TargetType discriminates the review target
type TargetType string

const (
	TargetFood       TargetType = "food"
	TargetRestaurant TargetType = "restaurant"
	TargetGeneral    TargetType = "general"
)

// Target returns the review's target kind and id
func (r *Review) Target() (TargetType, string) {
	if r.FoodID != nil && *r.FoodID != "" {
		return TargetFood, *r.FoodID
	}
	if r.RestaurantID != nil && *r.RestaurantID != "" {
		return TargetRestaurant, *r.RestaurantID
	}
	return TargetGeneral, ""
}

// AuthorID returns the author id or an empty string
func (r *Review) AuthorID() string {
	if r.UserID == nil {
		return ""
	}
	return *r.UserID
}

// Comment represents a flat comment on a review
type Comment struct {
	ID        string  `json:"id,omitempty"`
	ReviewID  string  `json:"reviewId"`
	UserID    *string `json:"userId"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// User represents a user record owned by the user service
type User struct {
	ID                      string   `json:"id"`
	Name                    *string  `json:"name"`
	FirstName               *string  `json:"firstName"`
	LastName                *string  `json:"lastName"`
	Email                   *string  `json:"email"`
	CoverPhoto              *string  `json:"coverPhoto"`
	UserPhoto               *string  `json:"userPhoto"`
	Location                *string  `json:"location"`
	TotalCriticScore        float64  `json:"totalCriticScore"`
	Coins                   float64  `json:"coins"`
	CreatedAt               string   `json:"createdAt,omitempty"`
	LastRechargedAt         string   `json:"lastRechargedAt,omitempty"`
	Following               []string `json:"following"`
	Followers               []string `json:"followers"`
	Visits                  []string `json:"visits"`
	CriticScoreHistory      []string `json:"criticScoreHistory"`
	LocationRecommendations []string `json:"locationRecommendations"`
}

// DisplayName picks the best human readable name, falling back to the id
func (u *User) DisplayName() string {
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return *u.Name
	}
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return u.ID
}

// Avatar returns the user photo URL, if any
func (u *User) Avatar() string {
	if u.UserPhoto == nil {
		return ""
	}
	return *u.UserPhoto
}

// Food represents a dish owned by the food service
type Food struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"f_name"`
	Description    *string  `json:"description"`
	Category       *string  `json:"category"`
	Price          *float64 `json:"price"`
	ImageURL       *string  `json:"image_url"`
	NutritionTable *string  `json:"nutrition_table"`
	RestaurantID   *string  `json:"resturant_id"`
	UserID         *string  `json:"user_id"`
}

// Restaurant represents a restaurant owned by the restaurant service
type Restaurant struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Location    *string  `json:"location"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Weblink     *string  `json:"weblink"`
	FoodIDList  []string `json:"foodIdList"`
}

// Visit is the legacy restaurant representation kept by the visit service
type Visit struct {
	ID             string   `json:"id,omitempty"`
	UserID         *string  `json:"userId"`
	Location       *string  `json:"location"`
	Time           string   `json:"time,omitempty"`
	RestaurantName string   `json:"resturantName"`
	Foods          []string `json:"foods"`
}

// Hangout is a two-party meetup invitation
type Hangout struct {
	ID              string   `json:"id,omitempty"`
	Message         *string  `json:"message"`
	UserID1         *string  `json:"userId1"`
	UserID2         *string  `json:"userId2"`
	RestaurantID    *string  `json:"restaurantId"`
	ApprovedByUser1 *bool    `json:"approvedByUser1"`
	ApprovedByUser2 *bool    `json:"approvedByUser2"`
	AllocatedTime   *string  `json:"allocatedTime"`
	FoodIDs         []string `json:"foodIds"`
}

// HangoutStatus is derived from the two approval flags
type HangoutStatus string

const (
	HangoutAccepted HangoutStatus = "accepted"
	HangoutDeclined HangoutStatus = "declined"
	HangoutPending  HangoutStatus = "pending"
)

// Status is accepted when both parties approved, declined when either refused, pending otherwise
func (h *Hangout) Status() HangoutStatus {
	if isTrue(h.ApprovedByUser1) && isTrue(h.ApprovedByUser2) {
		return HangoutAccepted
	}
	if isFalse(h.ApprovedByUser1) || isFalse(h.ApprovedByUser2) {
		return HangoutDeclined
	}
	return HangoutPending
}

func isTrue(b *bool) bool  { return b != nil && *b }
func isFalse(b *bool) bool { return b != nil && !*b }

// RecommendationQuery carries the recommendation agent's query parameters
type RecommendationQuery struct {
	Query      string   `json:"query"`
	Place      string   `json:"place,omitempty"`
	Types      string   `json:"types,omitempty"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	Category   string   `json:"category,omitempty"`
	Restaurant string   `json:"restaurant,omitempty"`
	TopK       int      `json:"top_k,omitempty"`
}

// RecommendedPlace is a restaurant suggested by the recommendation agent
// DBID links it to the restaurant service; nearby places from the maps search have none.
type RecommendedPlace struct {
	Name     string      `json:"name"`
	Category *string     `json:"category,omitempty"`
	Location *string     `json:"location,omitempty"`
	DBID     string      `json:"db_id,omitempty"`
	Details  *Restaurant `json:"details,omitempty"`
}

// RecommendedFood is a dish suggested by the recommendation agent
type RecommendedFood struct {
	Name       string   `json:"name"`
	Category   *string  `json:"category,omitempty"`
	Restaurant *string  `json:"restaurant,omitempty"`
	Price      *float64 `json:"price,omitempty"`
	DBID       string   `json:"db_id,omitempty"`
	Details    *Food    `json:"details,omitempty"`
}

// Recommendation is the recommendation agent's answer
type Recommendation struct {
	Query                  string             `json:"query"`
	RecommendedRestaurants []RecommendedPlace `json:"recommended_restaurants"`
	RecommendedFoods       []RecommendedFood  `json:"recommended_foods"`
	NearbyRestaurants      []RecommendedPlace `json:"nearby_restaurants"`
}

// Nutrition is the nutrition agent's breakdown of a dish photo
type Nutrition struct {
	FoodDescription string `json:"food_description"`
	Carbohydrates   string `json:"carbohydrates"`
	Proteins        string `json:"proteins"`
	Fats            string `json:"fats"`
	TotalCalories   string `json:"total_calories"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts the zoned and zone-less timestamps the backends emit
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Now formats the current time the way the backends expect it
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed-to value or the zero value
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
