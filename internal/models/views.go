package models

// Author is the resolved display identity of a user
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ReviewTarget is the resolved food or restaurant a review is about
type ReviewTarget struct {
	Type       TargetType  `json:"type"`
	ID         string      `json:"id,omitempty"`
	Food       *Food       `json:"food,omitempty"`
	Restaurant *Restaurant `json:"restaurant,omitempty"`
}

// CommentView is a comment with its author resolved
type CommentView struct {
	ID        string `json:"id"`
	Author    Author `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// FeedPost is the display-ready merge of a review, its author and its target
type FeedPost struct {
	ID           string        `json:"id"`
	Author       Author        `json:"author"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Target       ReviewTarget  `json:"target"`
	Likes        int           `json:"likes"`
	Dislikes     int           `json:"dislikes"`
	LikedByMe    bool          `json:"likedByMe"`
	DislikedByMe bool          `json:"dislikedByMe"`
	CommentCount int           `json:"commentCount"`
	Comments     []CommentView `json:"comments,omitempty"`
	CreatedAt    string        `json:"createdAt"`
	Sentiment    string        `json:"sentiment,omitempty"`
}

// RestaurantDetails is a restaurant with its foods resolved
type RestaurantDetails struct {
	Restaurant
	Foods []*Food `json:"foods"`
}

// VisitRestaurant is a restaurant synthesized from grouped visits
type VisitRestaurant struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Address      string   `json:"address,omitempty"`
	RecentVisits []*Visit `json:"recentVisits"`
}

// HangoutView is a hangout with its status and counterpart resolved
type HangoutView struct {
	Hangout
	Status      HangoutStatus `json:"status"`
	Counterpart Author        `json:"counterpart"`
	AwaitingMe  bool          `json:"awaitingMe"`
}

// Profile is the aggregated profile screen
type Profile struct {
	User           *User          `json:"user"`
	Coins          int64          `json:"coins"`
	FollowerCount  int            `json:"followerCount"`
	FollowingCount int            `json:"followingCount"`
	Reviews        []*FeedPost    `json:"reviews"`
	Hangouts       []*HangoutView `json:"hangouts"`
}
