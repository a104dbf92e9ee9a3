package domain

// Session is the payload carried by a signed session token.
type Session struct {
	UserID          int64   `json:"user_id"`
	Email           string  `json:"email"`
	Username        *string `json:"username,omitempty"`
	WalletAddress   *string `json:"wallet_address,omitempty"`
	WalletConnected bool    `json:"wallet_connected"`
}

func NewSession(user *User, wallet *WalletLink) Session {
	s := Session{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
	}
	if wallet != nil && wallet.Connected {
		address := wallet.Address
		s.WalletAddress = &address
		s.WalletConnected = true
	}
	return s
}
