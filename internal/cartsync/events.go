package cartsync

import "github.com/angelmondragon/quotecart/internal/cart"

// Events receives discrete sync outcomes for a rendering layer to observe.
type Events interface {
	ItemSynced(item cart.Item)
	DuplicateDetected(local cart.Item, err *SyncError)
	SyncFailed(itemID string, err *SyncError)
}

// EventFuncs adapts plain functions to Events. Nil fields are skipped.
type EventFuncs struct {
	OnSynced    func(cart.Item)
	OnDuplicate func(cart.Item, *SyncError)
	OnFailure   func(string, *SyncError)
}

func (f EventFuncs) ItemSynced(item cart.Item) {
	if f.OnSynced != nil {
		f.OnSynced(item)
	}
}

func (f EventFuncs) DuplicateDetected(local cart.Item, err *SyncError) {
	if f.OnDuplicate != nil {
		f.OnDuplicate(local, err)
	}
}

func (f EventFuncs) SyncFailed(itemID string, err *SyncError) {
	if f.OnFailure != nil {
		f.OnFailure(itemID, err)
	}
}
