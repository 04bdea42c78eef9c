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

package leader

import (
	"context"
	"time"

	"github.com/mppdb/coordinator/go/vt/log"
)

// RunCampaign keeps r campaigning for leadership until ctx is done.
// onChange, if set, is called with true when leadership is acquired and with
// false when it is lost. Failed campaigns are retried after retryInterval.
func RunCampaign(ctx context.Context, r Resolver, retryInterval time.Duration, onChange func(leading bool)) {
	notify := func(leading bool) {
		if onChange != nil {
			onChange(leading)
		}
	}
	for {
		lctx, err := r.Campaign(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WarnS("campaign failed", "self", r.Self(), "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryInterval):
			}
			continue
		}

		log.InfoS("leading", "self", r.Self())
		notify(true)
		select {
		case <-ctx.Done():
		case <-lctx.Done():
		}
		log.InfoS("no longer leading", "self", r.Self())
		notify(false)
		if ctx.Err() != nil {
			return
		}
	}
}
