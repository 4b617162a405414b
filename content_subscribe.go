package channel

import (
	"crypto/ed25519"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

const subscribePlainSize = 32 + ed25519.PublicKeySize + 32 // unsubKey + sigPk + kePub

// subscribeWrap builds the SUBSCRIBE body: the announcement link it joins
// against (in the clear, so an unwrapper can perform the same link-store
// lookup), a random unsubscribe key, and the subscriber's identity,
// encrypted to the author's X25519 public key with a fresh ephemeral key
// pair.
type subscribeWrap struct {
	rng            io.Reader
	linkTo         Rel
	unsubscribeKey [32]byte
	subscriber     *Identity
	authorKePub    [32]byte
}

var _ contentWrap = (*subscribeWrap)(nil)

func (c *subscribeWrap) wrap(store LinkStore, hdrBytes []byte) ([]byte, *Spongos, error) {
	parent, err := forkParent(store, c.linkTo)
	if err != nil {
		return nil, nil, err
	}
	parent.AbsorbExternal(hdrBytes)
	parent.Absorb(c.linkTo[:])

	ephPriv, ephPub, err := generateX25519Ephemeral(c.rng)
	if err != nil {
		return nil, nil, err
	}
	secret, err := x25519DH(ephPriv, c.authorKePub)
	if err != nil {
		return nil, nil, err
	}
	key, nonce := deriveAEAD(secret, []byte("streamchannel/subscribe"))

	plain := make([]byte, 0, subscribePlainSize)
	plain = append(plain, c.unsubscribeKey[:]...)
	plain = append(plain, c.subscriber.SigPublic()...)
	subKePub := c.subscriber.KePublic()
	plain = append(plain, subKePub[:]...)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, errf("wrap subscribe", CryptoFailure, "new aead: %w", err)
	}
	ct := aead.Seal(nil, nonce, plain, hdrBytes)

	body := make([]byte, 0, 32+len(ephPub)+len(ct))
	body = append(body, c.linkTo[:]...)
	body = append(body, ephPub[:]...)
	body = append(body, ct...)
	parent.Absorb(body[32:])
	return body, parent, nil
}

// subscribeUnwrap decrypts a SUBSCRIBE body with the author's static
// X25519 secret.
type subscribeUnwrap struct {
	author          *Identity
	LinkTo          Rel
	UnsubscribeKey  [32]byte
	SubscriberSigPk ed25519.PublicKey
	SubscriberKePk  [32]byte
}

var _ contentUnwrap = (*subscribeUnwrap)(nil)

func (c *subscribeUnwrap) unwrap(store LinkStore, hdrBytes, body []byte) (*Spongos, error) {
	if len(body) < 32+32 {
		return nil, errf("unwrap subscribe", EncodingError, "truncated body")
	}
	var linkTo Rel
	copy(linkTo[:], body[:32])
	rest := body[32:]

	parent, err := forkParent(store, linkTo)
	if err != nil {
		return nil, err
	}
	parent.AbsorbExternal(hdrBytes)
	parent.Absorb(linkTo[:])

	var ephPub [32]byte
	copy(ephPub[:], rest[:32])
	ct := rest[32:]

	secret, err := c.author.sharedSecret(ephPub)
	if err != nil {
		return nil, err
	}
	key, nonce := deriveAEAD(secret, []byte("streamchannel/subscribe"))
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errf("unwrap subscribe", CryptoFailure, "new aead: %w", err)
	}
	plain, err := aead.Open(nil, nonce, ct, hdrBytes)
	if err != nil {
		return nil, errf("unwrap subscribe", CryptoFailure, "bad subscribe ciphertext: %w", err)
	}
	if len(plain) != subscribePlainSize {
		return nil, errf("unwrap subscribe", EncodingError, "bad plaintext length: %d", len(plain))
	}

	c.LinkTo = linkTo
	copy(c.UnsubscribeKey[:], plain[0:32])
	c.SubscriberSigPk = append(ed25519.PublicKey(nil), plain[32:32+ed25519.PublicKeySize]...)
	copy(c.SubscriberKePk[:], plain[32+ed25519.PublicKeySize:])

	parent.Absorb(rest)
	return parent, nil
}
