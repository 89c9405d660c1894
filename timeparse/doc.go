// Copyright 2025 Poiesic Systems
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


// Package timeparse resolves free-text time expressions into concrete
// time ranges.
//
// The Parser runs an ordered cascade of matchers where the first match
// wins: exact keywords, weekday references, relative counts, quarters,
// explicit and prepositional ranges, then month/year/date forms with a
// final ordinal-day heuristic. Month references without a year may be
// flagged ambiguous, in which case the result carries ordered
// clarification options the caller can present to the user.
//
// Parsing is side-effect-free and deterministic for a given expression,
// reference instant, and default-range policy.
package timeparse
