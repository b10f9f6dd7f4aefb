package user

import "strings"

// User is the signed-in person. It only partitions data and labels the UI;
// it carries no authority over remote calls.
type User struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Email    string `yaml:"email,omitempty" json:"email,omitempty"`
	PhotoURL string `yaml:"photo_url,omitempty" json:"photoUrl,omitempty"`
	// Provider is "demo" or the issuer of the federated identity token.
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`
}

const (
	DemoUserID   = "user_123"
	DemoUserName = "Demo User"
)

func Demo() *User {
	return &User{
		ID:       DemoUserID,
		Name:     DemoUserName,
		Email:    "demo@example.com",
		Provider: "demo",
	}
}

func (u *User) Valid() bool {
	return u != nil && strings.TrimSpace(u.ID) != ""
}
