package leagues

import (
	"github.com/mcdev12/castaway/go/internal/models"
)

// CreateLeagueRequest represents the data needed to create a new league
type CreateLeagueRequest struct {
	Name           string              `json:"name" yaml:"name"`
	Season         string              `json:"season" yaml:"season"`
	CommissionerID string              `json:"commissioner_id" yaml:"commissioner_id"`
	Members        []models.Member     `json:"members" yaml:"members"`
	Contestants    []models.Contestant `json:"contestants" yaml:"contestants"`
}
