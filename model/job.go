/*
Copyright 2025 LeadForge Authors.

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

package model

import "strconv"

// JobStatus is one state in the job lifecycle. The order is strictly forward:
// queued < mining < validating < synthesizing < {complete, failed}.
type JobStatus string

const (
	StatusQueued       JobStatus = "queued"
	StatusMining       JobStatus = "mining"
	StatusValidating   JobStatus = "validating"
	StatusSynthesizing JobStatus = "synthesizing"
	StatusComplete     JobStatus = "complete"
	StatusFailed       JobStatus = "failed"
)

var statusRank = map[JobStatus]int{
	StatusQueued:       0,
	StatusMining:       1,
	StatusValidating:   2,
	StatusSynthesizing: 3,
	StatusComplete:     4,
	StatusFailed:       4,
}

// Rank returns the position of the status in the state-machine order.
// Unknown statuses rank below queued so a malformed write can never
// overwrite a legitimate one.
func (s JobStatus) Rank() int {
	rank, ok := statusRank[s]
	if !ok {
		return -1
	}
	return rank
}

// Terminal reports whether the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job is the tracked lifecycle of one batch of leads moving through the
// pipeline. The hash record under jobs:{id} is the durable source of truth;
// the per-job event channel is a latency optimization for observers.
type Job struct {
	JobID    string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Progress float64   `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// ToMap flattens the job into the fields persisted under jobs:{id}.
func (j *Job) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"status":   string(j.Status),
		"progress": strconv.FormatFloat(j.Progress, 'f', -1, 64),
	}
	if j.Error != "" {
		m["error"] = j.Error
	}
	return m
}

// JobFromMap rebuilds a job from its stored hash fields.
func JobFromMap(jobID string, fields map[string]string) *Job {
	progress, _ := strconv.ParseFloat(fields["progress"], 64)
	return &Job{
		JobID:    jobID,
		Status:   JobStatus(fields["status"]),
		Progress: progress,
		Error:    fields["error"],
	}
}
