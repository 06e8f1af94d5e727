// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package sorter

import (
	"fmt"
	"sync"

	"github.com/cardinalhq/colsort/internal/sorting"
)

// State is the lifecycle stage of a sort job.
type State int

const (
	StateRunning State = iota
	StateFinished
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is a snapshot of a job's state. Message is set only for StateError.
type Status struct {
	State   State
	Message string
}

// IsTerminal reports whether the job has stopped. Terminal statuses never change.
func (s Status) IsTerminal() bool {
	return s.State != StateRunning
}

func (s Status) String() string {
	if s.State == StateError {
		return "error: " + s.Message
	}
	return s.State.String()
}

// state is the cell shared between a Sorter and its worker. The worker is
// its only writer of status, result and done; any holder of the Sorter may
// set shouldTerminate.
type state struct {
	mu              sync.RWMutex
	status          Status
	shouldTerminate bool
	done            bool
	result          *sorting.Result
}

func (st *state) snapshot() Status {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.status
}

func (st *state) requestTermination() {
	st.mu.Lock()
	st.shouldTerminate = true
	st.mu.Unlock()
}

func (st *state) terminationRequested() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.shouldTerminate
}

// finish publishes the job outcome and marks the worker done. The result
// and the Finished status become visible together.
func (st *state) finish(result *sorting.Result, err error) Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.status.State == StateRunning {
		if err != nil {
			st.status = Status{State: StateError, Message: err.Error()}
		} else {
			st.result = result
			st.status = Status{State: StateFinished}
		}
	}
	st.done = true
	return st.status
}

func (st *state) isDone() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.done
}

func (st *state) window(from, n uint64) ([]uint64, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.result == nil {
		return nil, false
	}
	return st.result.Window(from, n), true
}

func (st *state) numRows() (uint64, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.result == nil {
		return 0, false
	}
	return uint64(st.result.Len()), true
}

func (st *state) rank(row uint64) (uint64, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.result == nil {
		return 0, false
	}
	return st.result.Rank(row)
}
