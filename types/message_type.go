/*
 * Copyright 2026 Keyhole Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

type MessageType string

const (
	QueryDataMessage   MessageType = "QUERY_DATA"
	QueryResultMessage MessageType = "QUERY_RESULT"
	QueryErrorMessage  MessageType = "QUERY_ERROR"
)

// Message is the logical envelope crossing the worker boundary. There is at
// most one query in flight at a time by contract; responses additionally echo
// the request's target so a reply for a different data set never gets
// attributed to the waiting query.
type Message struct {
	Type   MessageType   `json:"type"`
	Target Target        `json:"target"`
	Params *QueryRequest `json:"params,omitempty"`
	Result *QueryResult  `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}
