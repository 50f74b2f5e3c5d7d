// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

package core

// Notifier receives a notification for every successfully committed write
// operation. The payload is the serialized record, or the deleted record for
// delete operations.
//
// Notifiers run after the storage commit; a failing notifier does not fail
// the request.
type Notifier interface {
	Notify(database string, entity string, operation Operation, payload []byte) error
}
