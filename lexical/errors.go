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


package lexical

import "errors"

var (
	// ErrFTSUnavailable indicates the linked SQLite build was compiled
	// without the FTS5 extension.
	ErrFTSUnavailable = errors.New("fts5 extension not available")

	// ErrIndexClosed indicates the index has been closed.
	ErrIndexClosed = errors.New("lexical index is closed")
)
