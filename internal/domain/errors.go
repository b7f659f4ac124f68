package domain

import "errors"

var (
	// ErrDealNotFound возвращается, когда сделка по идентификатору не найдена.
	ErrDealNotFound = errors.New("deal not found")

	// ErrDealInactive возвращается при действии над сделкой-надгробием.
	ErrDealInactive = errors.New("deal is inactive")
)
