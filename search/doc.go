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


// Package search provides temporal-semantic retrieval over the note archive.
//
// The Searcher type combines several retrieval strategies:
//   - Vector similarity search over note embeddings
//   - Keyword search backed by a full-text index
//   - Hybrid fusion of both signals with graceful single-source degradation
//   - Hierarchical day/hour search for time-window questions
//
// All searches accept an optional time filter and return results ordered by
// descending relevance score.
package search
