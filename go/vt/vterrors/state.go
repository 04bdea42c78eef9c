/*
Copyright 2026 The MPPDB Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package vterrors

// State narrows an error code down to the condition that caused it.
type State int

// All the error states
const (
	Undefined State = iota

	// invalid argument
	MissingParameter
	BadSourceReference
	BadPlan

	// permission denied
	AccessDenied

	// unauthenticated
	BadCredentials

	// not found
	NoSuchJob
	NoSuchTable

	// unavailable
	HostResolutionFailed
	MetadataUnreachable
	NoLiveReplica
	NoLeader

	// failed precondition
	PlanNotFinalized
	PlanAlreadyFinalized
	PlanFrozen

	// No state should be added below NumOfStates
	NumOfStates
)

var stateNames = [...]string{
	Undefined:            "Undefined",
	MissingParameter:     "MissingParameter",
	BadSourceReference:   "BadSourceReference",
	BadPlan:              "BadPlan",
	AccessDenied:         "AccessDenied",
	BadCredentials:       "BadCredentials",
	NoSuchJob:            "NoSuchJob",
	NoSuchTable:          "NoSuchTable",
	HostResolutionFailed: "HostResolutionFailed",
	MetadataUnreachable:  "MetadataUnreachable",
	NoLiveReplica:        "NoLiveReplica",
	NoLeader:             "NoLeader",
	PlanNotFinalized:     "PlanNotFinalized",
	PlanAlreadyFinalized: "PlanAlreadyFinalized",
	PlanFrozen:           "PlanFrozen",
}

func (s State) String() string {
	if s < 0 || s >= NumOfStates {
		return "Undefined"
	}
	return stateNames[s]
}

// ErrorWithState is implemented by errors that know their State.
type ErrorWithState interface {
	ErrorState() State
}
