package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/docpipe/internal/logging"
	"github.com/cloo-solutions/docpipe/internal/telemetry"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronScheduler runs JobProcessors on cron specs. Each job is single-flight:
// a tick that fires while the previous run is still going is skipped.
type CronScheduler struct {
	cron *cron.Cron
	ctx  context.Context
	jobs []*scheduledJob
	wg   sync.WaitGroup
}

type scheduledJob struct {
	name      string
	spec      string
	processor JobProcessor
	timeout   time.Duration
	running   atomic.Bool
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron: cron.New(cron.WithParser(parser)),
		ctx:  context.Background(),
	}
}

// AddJob registers processor under spec. A positive timeout bounds each run.
func (c *CronScheduler) AddJob(name, spec string, processor JobProcessor, timeout time.Duration) error {
	job := &scheduledJob{name: name, spec: spec, processor: processor, timeout: timeout}
	log := zap.L().With(zap.String("job", name), zap.String("spec", spec))
	if _, err := c.cron.AddFunc(spec, func() { c.run(job) }); err != nil {
		log.Error("schedule job failed", zap.Error(err))
		return err
	}
	c.jobs = append(c.jobs, job)
	log.Info("job scheduled")
	return nil
}

// Start begins firing cron entries. With runNow every job also runs once
// immediately, subject to the same single-flight guard.
func (c *CronScheduler) Start(ctx context.Context, runNow bool) {
	c.ctx = ctx
	c.cron.Start()
	if runNow {
		for _, job := range c.jobs {
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.run(job)
			}()
		}
	}
}

// Stop waits for running jobs to finish.
func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
	c.wg.Wait()
}

// RunOnce runs the named job synchronously. It reports false if the job is
// unknown or already running.
func (c *CronScheduler) RunOnce(name string) bool {
	for _, job := range c.jobs {
		if job.name == name {
			return c.run(job)
		}
	}
	return false
}

func (c *CronScheduler) run(job *scheduledJob) bool {
	log := logging.FromContext(c.ctx).With(zap.String("job", job.name))
	if !job.running.CompareAndSwap(false, true) {
		log.Info("job skipped: still running")
		return false
	}
	defer job.running.Store(false)

	ctx := c.ctx
	if job.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.timeout)
		defer cancel()
	}

	start := time.Now()
	log.Info("job started")
	err := job.processor.ProcessJobs(ctx)
	elapsed := time.Since(start)
	if err != nil {
		telemetry.CaptureError(ctx, err)
		log.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return true
	}
	log.Info("job finished", zap.Duration("duration", elapsed))
	return true
}
