package transport

import (
	"crypto/sha1"
	"log"
	"time"

	"github.com/pkg/errors"
	kcp "github.com/xtaci/kcp-go/v5"
	"golang.org/x/crypto/pbkdf2"
)

// saltKCP is kcptun's own pbkdf2 salt (client/main.go's SALT), kept
// so a passphrase derived here lines up with a kcptun-side agent.
const saltKCP = "kcp-go"

// KCPConfig mirrors the subset of kcptun's client/main.go CLI flags
// that matter to a library caller: cipher selection and forward error
// correction shard counts.
//
// Key is used as-is if set; Passphrase, if Key is empty, is stretched
// into a 32-byte key via pbkdf2 exactly as client/main.go does for its
// own -key flag. Cipher selection then truncates that key to the
// cipher's required size.
type KCPConfig struct {
	Crypt        string // cipher name, see cryptMethods
	Key          []byte
	Passphrase   string
	DataShards   int
	ParityShards int
}

// resolveKey returns cfg.Key verbatim, or derives one from
// cfg.Passphrase via pbkdf2, grounded on client/main.go:391's
// `pbkdf2.Key([]byte(config.Key), []byte(SALT), 4096, 32, sha1.New)`.
func (cfg KCPConfig) resolveKey() []byte {
	if len(cfg.Key) > 0 {
		return cfg.Key
	}
	if cfg.Passphrase == "" {
		return nil
	}
	return pbkdf2.Key([]byte(cfg.Passphrase), []byte(saltKCP), 4096, 32, sha1.New)
}

// cryptMethod pairs a cipher name with its kcp.BlockCrypt constructor
// and required key size, grounded verbatim on std/crypt.go's
// cryptMethods lookup table.
type cryptMethod struct {
	keySize int
	build   func(key []byte) (kcp.BlockCrypt, error)
}

var cryptMethods = map[string]cryptMethod{
	"none":        {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewNoneBlockCrypt(key) }},
	"sm4":         {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSM4BlockCrypt(key) }},
	"tea":         {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewTEABlockCrypt(key) }},
	"xor":         {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSimpleXORBlockCrypt(key) }},
	"aes-128":     {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
	"aes-192":     {24, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
	"blowfish":    {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewBlowfishBlockCrypt(key) }},
	"twofish":     {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewTwofishBlockCrypt(key) }},
	"cast5":       {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewCast5BlockCrypt(key) }},
	"3des":        {24, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewTripleDESBlockCrypt(key) }},
	"xtea":        {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewXTEABlockCrypt(key) }},
	"salsa20":     {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSalsa20BlockCrypt(key) }},
	"aes-128-gcm": {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESGCMCrypt(key) }},
}

// selectBlockCrypt resolves a cipher name to a kcp.BlockCrypt, falling
// back to AES on an unknown name or build failure, per std/crypt.go's
// SelectBlockCrypt.
func selectBlockCrypt(method string, key []byte) kcp.BlockCrypt {
	if m, ok := cryptMethods[method]; ok {
		k := key
		if m.keySize > 0 && len(k) >= m.keySize {
			k = k[:m.keySize]
		}
		block, err := m.build(k)
		if err == nil {
			return block
		}
		log.Printf("transport: cipher %q failed (%v), falling back to aes", method, err)
	}
	block, _ := kcp.NewAESBlockCrypt(key)
	return block
}

// KCP wraps a congestion-controlled, FEC-capable kcp-go session as a
// Transport, grounded on client/main.go's createConn()/DialKCP.
type KCP struct {
	sess    *kcp.UDPSession
	mtu     int
	lastErr error
}

// DialKCP opens a kcp-go session to raddr using cfg's cipher/FEC
// parameters.
func DialKCP(raddr string, cfg KCPConfig) (*KCP, error) {
	var block kcp.BlockCrypt
	if cfg.Crypt != "" && cfg.Crypt != "none" {
		block = selectBlockCrypt(cfg.Crypt, cfg.resolveKey())
	}
	sess, err := kcp.DialWithOptions(raddr, block, cfg.DataShards, cfg.ParityShards)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial kcp")
	}
	return &KCP{sess: sess, mtu: sess.GetMtu()}, nil
}

func (t *KCP) SendMsg(data []byte) bool {
	if _, err := t.sess.Write(data); err != nil {
		t.lastErr = err
		return false
	}
	return true
}

func (t *KCP) RecvMsg(timeout time.Duration) ([]byte, bool) {
	if err := t.sess.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.lastErr = err
		return nil, false
	}
	buf := make([]byte, t.mtu)
	n, err := t.sess.Read(buf)
	if err != nil {
		t.lastErr = err
		return nil, false
	}
	return buf[:n], true
}

func (t *KCP) MTU() int { return t.mtu }

func (t *KCP) LastError() error { return t.lastErr }

// Close releases the underlying kcp session.
func (t *KCP) Close() error { return t.sess.Close() }
