package course

import (
	"encoding/json"

	"github.com/trezcool/moodlegw/core"
)

type (
	// EnrolRequest identifies the user by username or by id; the id wins when both are given.
	// A zero RoleID means the configured default role (student).
	EnrolRequest struct {
		Username string       `json:"username" validate:"required_without=UserID"`
		UserID   core.FlexInt `json:"userid" validate:"required_without=Username"`
		CourseID core.FlexInt `json:"courseid" validate:"required"`
		RoleID   core.FlexInt `json:"roleid"`
	}

	Enrolment struct {
		Enrolled bool `json:"enrolled"`
		UserID   int  `json:"userid"`
		CourseID int  `json:"courseid"`
		RoleID   int  `json:"roleid"`
	}

	// Detail is what a course page needs: its metadata and its (tokenized) contents.
	Detail struct {
		Course   json.RawMessage `json:"course"`
		Contents json.RawMessage `json:"contents"`
	}
)
