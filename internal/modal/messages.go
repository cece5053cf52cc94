package modal

// User-facing notices, in the language of the page.
const (
	MsgAlreadyParking = "Masz już aktywne parkowanie."
	MsgParkingFull    = "Parking jest pełny – spróbuj inny."
	MsgReserveFailed  = "Nie udało się zarezerwować: "
	MsgReserveNetwork = "Błąd sieci przy rezerwacji."
	MsgFinishFailed   = "Nie udało się zakończyć: "
	MsgFinishNetwork  = "Błąd sieci przy kończeniu rezerwacji."
)
