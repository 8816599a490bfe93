// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package channelmask

import (
	"fmt"
	"sync"

	"github.com/gogpu/channelmask/graphics"
)

// sharedEffect is one compiled channel mixing shader shared by every
// filter instance on the same device, with a reference count. The
// effect is compiled on the first acquire and destroyed when the last
// holder releases it, so repeated create/destroy cycles of a single
// filter recompile while steady-state multi-instance use compiles once.
type sharedEffect struct {
	effect graphics.Effect
	refs   int
}

var (
	mixEffectMu sync.Mutex
	mixEffects  = map[graphics.Device]*sharedEffect{}
)

// acquireMixEffect returns the device's shared channel mixing effect,
// compiling it if this is the first holder.
func acquireMixEffect(dev graphics.Device) (graphics.Effect, error) {
	mixEffectMu.Lock()
	defer mixEffectMu.Unlock()

	if se, ok := mixEffects[dev]; ok {
		se.refs++
		return se.effect, nil
	}
	fx, err := dev.NewChannelMixEffect()
	if err != nil {
		return nil, fmt.Errorf("channelmask: compile mixing effect: %w", err)
	}
	mixEffects[dev] = &sharedEffect{effect: fx, refs: 1}
	return fx, nil
}

// releaseMixEffect drops one reference to the device's shared effect
// and destroys it when no holders remain.
func releaseMixEffect(dev graphics.Device) {
	mixEffectMu.Lock()
	defer mixEffectMu.Unlock()

	se, ok := mixEffects[dev]
	if !ok {
		return
	}
	se.refs--
	if se.refs > 0 {
		return
	}
	delete(mixEffects, dev)
	se.effect.Destroy()
}
