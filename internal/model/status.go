package model

import (
	"encoding/json"
	"fmt"
)

// OpenStatus is the point-in-time classification of a location.
// StatusUnknown is only ever seen before the first normalization pass.
type OpenStatus int

const (
	StatusUnknown OpenStatus = iota
	StatusOpen
	StatusClosed
	StatusOpeningSoon
	StatusClosingSoon
)

var openStatusNames = map[OpenStatus]string{
	StatusUnknown:     "unknown",
	StatusOpen:        "open",
	StatusClosed:      "closed",
	StatusOpeningSoon: "openingSoon",
	StatusClosingSoon: "closingSoon",
}

var openStatusLabels = map[OpenStatus]string{
	StatusUnknown:     "Unknown",
	StatusOpen:        "Open",
	StatusClosed:      "Closed",
	StatusOpeningSoon: "Opening Soon",
	StatusClosingSoon: "Closing Soon",
}

func (s OpenStatus) String() string {
	if name, ok := openStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OpenStatus(%d)", int(s))
}

// Label is the human-facing text for the status.
func (s OpenStatus) Label() string {
	return openStatusLabels[s]
}

// IsOpen reports whether the location is serving right now.
func (s OpenStatus) IsOpen() bool {
	return s == StatusOpen || s == StatusClosingSoon
}

func (s OpenStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *OpenStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range openStatusNames {
		if v == name {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown open status %q", name)
}

// ChefStatus is OpenStatus relabeled for a visiting chef appearance.
type ChefStatus int

const (
	ChefHereNow ChefStatus = iota
	ChefGone
	ChefArrivingLater
	ChefArrivingSoon
	ChefLeavingSoon
)

var chefStatusNames = map[ChefStatus]string{
	ChefHereNow:       "hereNow",
	ChefGone:          "gone",
	ChefArrivingLater: "arrivingLater",
	ChefArrivingSoon:  "arrivingSoon",
	ChefLeavingSoon:   "leavingSoon",
}

var chefStatusLabels = map[ChefStatus]string{
	ChefHereNow:       "Here Now",
	ChefGone:          "Left For Today",
	ChefArrivingLater: "Arriving Later",
	ChefArrivingSoon:  "Arriving Soon",
	ChefLeavingSoon:   "Leaving Soon",
}

func (s ChefStatus) String() string {
	if name, ok := chefStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ChefStatus(%d)", int(s))
}

func (s ChefStatus) Label() string {
	return chefStatusLabels[s]
}

func (s ChefStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ChefStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range chefStatusNames {
		if v == name {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown chef status %q", name)
}
