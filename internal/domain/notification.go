package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Acknowledgment codes the gateway understands
const (
	AckCodeSuccess   = "00"
	AckCodeDuplicate = "06"
)

// FlexString accepts a JSON string, number, or null. The gateway is not
// consistent about quoting identifiers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return NewDomainError(ErrorCodeDecodeFailed, "expected a scalar value")
	}
	*f = FlexString(data)
	return nil
}

// String returns the trimmed value
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// InfoMsg is the routing metadata block of a bank notification
type InfoMsg struct {
	GUID       FlexString `json:"guId"`
	Channel    FlexString `json:"channel"`
	Subchannel FlexString `json:"subchannel"`
	ApplID     FlexString `json:"applId"`
	PersonID   FlexString `json:"personId"`
	UserID     FlexString `json:"userId"`
	Token      FlexString `json:"token"`
	Action     FlexString `json:"action"`
}

// Notification is a decrypted bank confirmation
type Notification struct {
	Raw           json.RawMessage
	InvoiceNumber string
	InfoMsg       InfoMsg
}

type notificationWire struct {
	InfoMsg json.RawMessage `json:"infoMsg"`
	Body    struct {
		NumeroFactura FlexString `json:"numeroFactura"`
	} `json:"webhookNotificationIn"`
}

// ParseNotification decodes a decrypted notification body.
// A missing invoice number is not an error here; callers decide how to respond.
func ParseNotification(plaintext []byte) (*Notification, error) {
	var wire notificationWire
	if err := json.Unmarshal(plaintext, &wire); err != nil {
		return nil, WrapError(ErrorCodeDecodeFailed, "notification is not valid JSON", err)
	}

	n := &Notification{
		Raw:           json.RawMessage(append([]byte(nil), plaintext...)),
		InvoiceNumber: wire.Body.NumeroFactura.String(),
	}

	if len(wire.InfoMsg) > 0 && !bytes.Equal(bytes.TrimSpace(wire.InfoMsg), []byte("null")) {
		if err := json.Unmarshal(wire.InfoMsg, &n.InfoMsg); err != nil {
			return nil, WrapError(ErrorCodeDecodeFailed, "infoMsg block is malformed", err)
		}
	}

	return n, nil
}

// AckInfoMsg echoes the routing metadata back to the gateway
type AckInfoMsg struct {
	GUID       string `json:"guId"`
	Channel    string `json:"channel"`
	Subchannel string `json:"subchannel"`
	ApplID     string `json:"applId"`
	PersonID   string `json:"personId"`
	UserID     string `json:"userId"`
	Token      string `json:"token"`
	Action     string `json:"action"`
}

// AckEnvelope is the response body the gateway expects from a confirmation callback
type AckEnvelope struct {
	InfoMsg        AckInfoMsg `json:"infoMsg"`
	Codigo         string     `json:"codigo"`
	MensajeCliente string     `json:"mensajeCliente"`
	MensajeSistema string     `json:"mensajeSistema"`
	IDRegistro     string     `json:"idRegistro"`
	Code           int        `json:"code"`
}

func newAck(m InfoMsg, codigo, cliente, sistema string) AckEnvelope {
	return AckEnvelope{
		InfoMsg: AckInfoMsg{
			GUID:       m.GUID.String(),
			Channel:    m.Channel.String(),
			Subchannel: m.Subchannel.String(),
			ApplID:     m.ApplID.String(),
			PersonID:   m.PersonID.String(),
			UserID:     m.UserID.String(),
			Token:      m.Token.String(),
			Action:     m.Action.String(),
		},
		Code:           0,
		Codigo:         codigo,
		MensajeCliente: cliente,
		MensajeSistema: sistema,
		IDRegistro:     m.GUID.String(),
	}
}

// NewSuccessAck acknowledges an applied notification
func NewSuccessAck(n *Notification) AckEnvelope {
	return newAck(n.InfoMsg, AckCodeSuccess, "Notificacion recibida con éxito!", "Notification processed")
}

// NewDuplicateAck acknowledges a replayed notification
func NewDuplicateAck(n *Notification) AckEnvelope {
	return newAck(n.InfoMsg, AckCodeDuplicate, "Notificación duplicada", "Webhook already processed")
}
