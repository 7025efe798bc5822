package inmemdb

import (
	"sync"

	"github.com/trezcool/lms/core/scorm"
)

type (
	DB struct {
		attempt     *attemptTable
		interaction *interactionTable
		buffer      *bufferTable
	}

	attemptTable struct {
		sync.RWMutex
		table map[string]*scorm.Attempt
	}

	interactionKey struct {
		attemptID, interactionID string
	}

	interactionTable struct {
		sync.RWMutex
		table map[interactionKey]*scorm.Interaction
	}

	bufferTable struct {
		sync.RWMutex
		table map[string]scorm.Values
	}
)

func Open() *DB {
	return &DB{
		attempt:     &attemptTable{table: make(map[string]*scorm.Attempt)},
		interaction: &interactionTable{table: make(map[interactionKey]*scorm.Interaction)},
		buffer:      &bufferTable{table: make(map[string]scorm.Values)},
	}
}
