package inject

import (
	"sync"
	"time"

	"github.com/faultline/faultline/internal/fault"
)

// campaignRun is the control state of one campaign goroutine.
type campaignRun struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (c *campaignRun) signalStop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// StartCampaign launches one goroutine that executes the configs strictly
// in list order with an interruptible wait between injections. A running
// campaign is stopped first.
func (e *engine) StartCampaign(configs []fault.InjectionConfig) error {
	if !e.initialized.Load() {
		return ErrNotInitialized
	}
	if len(configs) == 0 {
		return ErrEmptyCampaign
	}

	if e.campaignActive.Load() {
		e.logger.Warn("campaign already active, stopping previous campaign")
		if err := e.StopCampaign(); err != nil {
			return err
		}
	}

	run := &campaignRun{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	e.campaignMu.Lock()
	e.campaign = run
	e.campaignMu.Unlock()

	e.campaignActive.Store(true)
	go e.campaignLoop(configs, run)

	e.logger.Info("fault injection campaign started", "configs", len(configs))
	return nil
}

// StopCampaign signals the campaign goroutine and waits for it to finish.
// Idempotent when no campaign is running.
func (e *engine) StopCampaign() error {
	e.campaignMu.Lock()
	run := e.campaign
	e.campaign = nil
	e.campaignMu.Unlock()

	if run == nil {
		return nil
	}

	run.signalStop()
	<-run.done

	e.campaignActive.Store(false)
	e.logger.Info("fault injection campaign stopped")
	return nil
}

// CampaignActive reports whether a campaign goroutine is running.
func (e *engine) CampaignActive() bool {
	return e.campaignActive.Load()
}

// EmergencyStop sets the emergency flag and interrupts any active
// campaign, waiting up to EmergencyStopBudget for it to reach a safe
// checkpoint. Never panics; safe to call repeatedly and concurrently,
// including from cleanup paths.
func (e *engine) EmergencyStop() (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	e.emergencyStopped.Store(true)

	e.campaignMu.Lock()
	run := e.campaign
	e.campaign = nil
	e.campaignMu.Unlock()

	if run != nil {
		run.signalStop()
		select {
		case <-run.done:
		case <-time.After(EmergencyStopBudget):
		}
	}

	e.campaignActive.Store(false)

	if e.logger != nil {
		e.logger.Error("emergency stop activated, fault injection halted")
	}
	return true
}

// campaignLoop executes configs in order until done or interrupted.
// Every result is recorded and handed to the propagation callbacks.
func (e *engine) campaignLoop(configs []fault.InjectionConfig, run *campaignRun) {
	defer close(run.done)
	defer e.campaignActive.Store(false)

	e.logger.Info("campaign execution loop started")

	for _, cfg := range configs {
		if stopped(run.stop) || e.emergencyStopped.Load() {
			break
		}

		result := e.inject(cfg.Type, cfg)
		e.notifyPropagation(result)

		// Pace the next injection; the wait is cancellable, not a
		// fixed sleep.
		if cfg.InjectionPeriod > 0 {
			select {
			case <-run.stop:
			case <-time.After(cfg.InjectionPeriod.Std()):
			}
		}
	}

	e.logger.Info("campaign execution loop finished")
}

// notifyPropagation fans a result out to the propagation callbacks.
// A panicking callback is logged and must never escape into the engine.
func (e *engine) notifyPropagation(result fault.Result) {
	e.callbacksMu.Lock()
	callbacks := make([]PropagationCallback, len(e.propagation))
	copy(callbacks, e.propagation)
	e.callbacksMu.Unlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("propagation callback panicked", "panic", r)
				}
			}()
			cb(result)
		}()
	}
}

func stopped(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
