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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/leadforge/leadforge"
	"github.com/leadforge/leadforge/config"
	redis_db "github.com/leadforge/leadforge/internal/redis-db"

	"github.com/hibiken/asynq"
)

// processJob consumes one enrichment batch from the queue. The whole batch
// runs inside a single task, so only one executor ever advances the job's
// status and progress.
func (b *forgeInstance) processJob(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("leadforge.jobs.worker").Start(ctx, "Process Job From Queue")
	defer span.End()

	var payload leadforge.JobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	if err := b.forge.ProcessJob(ctx, payload.JobID, payload.WorkspaceID, payload.Leads); err != nil {
		// The job record already carries the failure; returning the error
		// here would retry a batch that has reached a terminal state.
		logrus.Errorf("job %s failed: %v", payload.JobID, err)
		return nil
	}

	log.Println(" [*] Job Processed", payload.JobID)
	return nil
}

func initializeWorkerServer(conf *config.Configuration) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
		},
	), nil
}

// workerCommands defines the "workers" command that consumes enrichment jobs
// from the shared queue.
func workerCommands(b *forgeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start leadforge workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			srv, err := initializeWorkerServer(conf)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			mux.HandleFunc(leadforge.TaskProcessJob, b.processJob)

			if pending, err := b.forge.PendingJobs(); err != nil {
				logrus.WithError(err).Warn("could not read queue backlog")
			} else {
				log.Printf(" [*] %d job(s) pending in queue", pending)
			}

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
