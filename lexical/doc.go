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


// Package lexical provides keyword search over note summaries using SQLite
// FTS5 with BM25 ranking.
//
// The index is a sidecar to the primary note store: it holds only the
// searchable text fields plus the note ID, and search results are resolved
// back against the primary store. Raw BM25 ranks are negative with lower
// meaning better; they are converted to scores in (0, 1] with higher meaning
// better before leaving this package.
//
// FTS5 is a compile-time SQLite option. When the linked SQLite build lacks
// it, Open fails with ErrFTSUnavailable and callers are expected to degrade
// to vector-only search.
package lexical
