package models

// FantasyTeam is a league team. Teams are keyed by name on the league document;
// ownership is tracked by Owner, never by the key.
type FantasyTeam struct {
	Owner   string   `json:"owner"`
	Members []string `json:"members"`
	Motto   string   `json:"motto,omitempty"`
	LogoURL string   `json:"logo_url,omitempty"`
}
