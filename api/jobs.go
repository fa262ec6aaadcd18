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
package api

import (
	"io"
	"net/http"

	model2 "github.com/leadforge/leadforge/api/model"

	"github.com/gin-gonic/gin"
)

func (a Api) EnqueueJob(c *gin.Context) {
	var newJob model2.EnqueueJob
	if err := c.ShouldBindJSON(&newJob); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := newJob.ValidateEnqueueJob()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	jobID, err := a.forge.EnqueueLeads(c.Request.Context(), newJob.WorkspaceID, newJob.Leads)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

func (a Api) GetJobStatus(c *gin.Context) {
	jobID, passed := c.Params.Get("job_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id is required. pass id in the route /:job_id"})
		return
	}

	resp, err := a.forge.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// StreamJobStatus pushes job snapshots to the client as server-sent events
// until the job reaches a terminal state or the client disconnects.
func (a Api) StreamJobStatus(c *gin.Context) {
	jobID, passed := c.Params.Get("job_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id is required. pass id in the route /:job_id"})
		return
	}

	updates, err := a.forge.StreamJobStatus(c.Request.Context(), jobID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		job, ok := <-updates
		if !ok {
			return false
		}
		c.SSEvent("status", job)
		return true
	})
}
