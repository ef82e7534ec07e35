package models

// Contestant is a draftable cast member. Name is the identity used in picks and rosters.
type Contestant struct {
	Name     string `json:"name" yaml:"name"`
	Tribe    string `json:"tribe,omitempty" yaml:"tribe"`
	Age      int    `json:"age,omitempty" yaml:"age"`
	Hometown string `json:"hometown,omitempty" yaml:"hometown"`
}
