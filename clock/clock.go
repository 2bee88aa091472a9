// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clock provides an injectable notion of time so that retry
// backoff and artificial-delay paths can be tested without real sleeps.
package clock

import "time"

// Clock mimics time.Now and time.After for dependency injection.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}
