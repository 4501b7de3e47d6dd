package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.PrepareStepsActivity)
	w.RegisterActivity(a.SynthesizeStepActivity)
	w.RegisterActivity(a.MergeStepsActivity)
	w.RegisterActivity(a.PublishPodcastActivity)
	w.RegisterActivity(a.AttachPodcastActivity)
	w.RegisterActivity(a.CleanupActivity)
}
