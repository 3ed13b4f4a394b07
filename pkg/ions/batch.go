package ions

import (
	"context"
	"runtime"
	"sync"

	"github.com/ChrisMcGann/FragKey/pkg/core"
	"github.com/ChrisMcGann/FragKey/pkg/peptide"
)

// Job is one peptide to annotate against its spectrum.
type Job struct {
	Index    int
	Peptide  peptide.Peptide
	Spectrum *core.Spectrum
}

// Result carries the matches for a Job, or the error that stopped it.
// A FragmentationError names the offending peptide.
type Result struct {
	Job     Job
	Matches []IonMatch
	Err     error
}

// AnnotateBatch annotates jobs on a pool of workers. Results arrive in
// completion order and the channel is closed once every worker has
// stopped. Cancelling ctx stops workers between jobs; a job already being
// annotated runs to completion. workers <= 0 uses one worker per CPU.
func AnnotateBatch(ctx context.Context, a *Annotator, jobs <-chan Job, workers int) <-chan Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make(chan Result, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			annotateWorker(ctx, a, jobs, results)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// annotateWorker picks jobs off the jobs channel until it is closed or ctx
// is done, sending each result on results.
func annotateWorker(ctx context.Context, a *Annotator, jobs <-chan Job, results chan<- Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			matches, err := a.Annotate(job.Peptide, job.Spectrum)
			select {
			case results <- Result{Job: job, Matches: matches, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// AnnotateAll runs jobs through AnnotateBatch and returns the results in
// job order. It returns ctx.Err() if the batch was cancelled.
func AnnotateAll(ctx context.Context, a *Annotator, jobs []Job, workers int) ([]Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan Job)
	go func() {
		defer close(in)
		for i, job := range jobs {
			job.Index = i
			select {
			case in <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	out := make([]Result, len(jobs))
	for r := range AnnotateBatch(ctx, a, in, workers) {
		out[r.Job.Index] = r
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}
