package lab

import (
	"bytes"
	"crypto/cipher"
	"errors"
	"fmt"
	"strings"

	"oraclelab/internal/attack"
	"oraclelab/internal/services/blockcipher"
	"oraclelab/internal/services/oracle"
)

// target is a lab's hidden oracle: the manual operations it offers and the
// attack that breaks it.
type target interface {
	blockSize() int
	prefixLen() *int
	ops() []string
	query(q Query) (Answer, error)
	attack(m *meter, opts []attack.Option) (recovered []byte, verified bool, err error)
}

var builders = map[Kind]func(algorithm string) (target, error){
	KindECBSuffix:   newSuffixTarget,
	KindModeGame:    newModeTarget,
	KindCBCPadding:  newPaddingTarget,
	KindCBCBitflip:  newUserDataTarget(attack.ModeCBC),
	KindCTRBitflip:  newUserDataTarget(attack.ModeCTR),
	KindIVKey:       newIVKeyTarget,
	KindECBCutPaste: newProfileTarget,
	KindCTREdit:     newEditTarget,
}

const (
	opEncrypt    = "encrypt"
	opDecrypt    = "decrypt"
	opCiphertext = "ciphertext"
	opValid      = "valid"
	opAdmin      = "admin"
	opProfile    = "profile"
	opDecode     = "decode"
	opEdit       = "edit"
)

var adminField = []byte(";admin=true")

func ptr[T any](v T) *T { return &v }

func newBlock(algorithm string) (cipher.Block, error) {
	blk, _, err := blockcipher.NewRandom(algorithm)
	return blk, err
}

type suffixTarget struct {
	o *oracle.SuffixOracle
	n int
}

func newSuffixTarget(algorithm string) (target, error) {
	blk, err := newBlock(algorithm)
	if err != nil {
		return nil, err
	}
	prefix, err := randomPrefix(blk.BlockSize())
	if err != nil {
		return nil, err
	}
	return &suffixTarget{o: oracle.NewSuffixOracle(blk, prefix, phrase()), n: blk.BlockSize()}, nil
}

func (t *suffixTarget) blockSize() int  { return t.n }
func (t *suffixTarget) prefixLen() *int { return nil }
func (t *suffixTarget) ops() []string   { return []string{opEncrypt} }

func (t *suffixTarget) query(q Query) (Answer, error) {
	out, err := t.o.Query(q.Input)
	return Answer{Output: out}, err
}

func (t *suffixTarget) attack(m *meter, opts []attack.Option) ([]byte, bool, error) {
	got, err := attack.BreakSuffixOracle(m.oracle(t.o.Query), opts...)
	if err != nil {
		return nil, false, err
	}
	return got, bytes.Equal(got, t.o.Suffix()), nil
}

const modeRounds = 16

type modeTarget struct {
	g *oracle.ModeGame
	n int
}

func newModeTarget(algorithm string) (target, error) {
	g, err := oracle.NewModeGame(algorithm)
	if err != nil {
		return nil, err
	}
	n, err := blockcipher.BlockSize(algorithm)
	if err != nil {
		return nil, err
	}
	return &modeTarget{g: g, n: n}, nil
}

func (t *modeTarget) blockSize() int  { return t.n }
func (t *modeTarget) prefixLen() *int { return nil }
func (t *modeTarget) ops() []string   { return []string{opEncrypt} }

func (t *modeTarget) query(q Query) (Answer, error) {
	out, err := t.g.Query(q.Input)
	return Answer{Output: out}, err
}

// attack guesses the mode of modeRounds fresh encryptions. The recovered
// value is the list of guesses.
func (t *modeTarget) attack(m *meter, _ []attack.Option) ([]byte, bool, error) {
	guesses := make([]string, 0, modeRounds)
	correct := true
	for range modeRounds {
		mode, err := attack.DetectMode(m.oracle(t.g.Query), t.n)
		if err != nil {
			return nil, false, err
		}
		guesses = append(guesses, mode.String())
		correct = correct && mode == t.g.Last()
	}
	return []byte(strings.Join(guesses, ",")), correct, nil
}

type paddingTarget struct {
	l *oracle.PaddingLab
}

func newPaddingTarget(algorithm string) (target, error) {
	blk, err := newBlock(algorithm)
	if err != nil {
		return nil, err
	}
	return &paddingTarget{l: oracle.NewPaddingLab(blk, phrase())}, nil
}

func (t *paddingTarget) blockSize() int  { return t.l.BlockSize() }
func (t *paddingTarget) prefixLen() *int { return nil }
func (t *paddingTarget) ops() []string   { return []string{opCiphertext, opValid} }

func (t *paddingTarget) query(q Query) (Answer, error) {
	if q.Op == opValid {
		return Answer{Valid: ptr(t.l.Valid(q.Input))}, nil
	}
	out, err := t.l.Ciphertext()
	return Answer{Output: out}, err
}

func (t *paddingTarget) attack(m *meter, opts []attack.Option) ([]byte, bool, error) {
	ivct, err := t.l.Ciphertext()
	if err != nil {
		return nil, false, err
	}
	padded, err := attack.DecryptPaddingOracle(ivct, m.validator(t.l.Valid), t.l.BlockSize(), opts...)
	if err != nil {
		return nil, false, err
	}
	pt, err := blockcipher.PKCS7Unpad(padded, t.l.BlockSize())
	if err != nil {
		return padded, false, nil
	}
	return pt, bytes.Equal(pt, t.l.Secret()), nil
}

type userDataTarget struct {
	l *oracle.UserDataLab
}

func newUserDataTarget(mode attack.Mode) func(string) (target, error) {
	return func(algorithm string) (target, error) {
		blk, err := newBlock(algorithm)
		if err != nil {
			return nil, err
		}
		if mode == attack.ModeCBC && blk.BlockSize() < len(adminField) {
			return nil, fmt.Errorf("%w: %s blocks are too short to carry %q", ErrUnsupported, algorithm, adminField)
		}
		l, err := oracle.NewUserDataLab(blk, mode)
		if err != nil {
			return nil, err
		}
		return &userDataTarget{l: l}, nil
	}
}

func (t *userDataTarget) blockSize() int  { return t.l.BlockSize() }
func (t *userDataTarget) prefixLen() *int { return ptr(t.l.PrefixLen()) }
func (t *userDataTarget) ops() []string   { return []string{opEncrypt, opAdmin} }

func (t *userDataTarget) query(q Query) (Answer, error) {
	if q.Op == opAdmin {
		ok, err := t.l.IsAdmin(q.Input)
		if err != nil {
			return Answer{}, err
		}
		return Answer{Admin: ptr(ok)}, nil
	}
	out, err := t.l.Encrypt(q.Input)
	return Answer{Output: out}, err
}

// attack returns the forged cookie; it is verified by the lab's own admin
// check.
func (t *userDataTarget) attack(m *meter, opts []attack.Option) ([]byte, bool, error) {
	encrypt := m.oracle(t.l.Encrypt)
	var (
		forged []byte
		err    error
	)
	if t.l.Mode() == attack.ModeCTR {
		var offset int
		offset, err = attack.FindStreamOffset(encrypt)
		if err != nil {
			return nil, false, err
		}
		forged, err = attack.InjectCTR(encrypt, offset, adminField, opts...)
	} else {
		forged, err = attack.InjectCBC(encrypt, t.l.PrefixLen(), t.l.BlockSize(), adminField, opts...)
	}
	if err != nil {
		return nil, false, err
	}
	ok, err := t.l.IsAdmin(forged)
	if err != nil {
		return forged, false, nil
	}
	return forged, ok, nil
}

type ivKeyTarget struct {
	l *oracle.IVKeyLab
}

func newIVKeyTarget(algorithm string) (target, error) {
	l, err := oracle.NewIVKeyLab(algorithm, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return &ivKeyTarget{l: l}, nil
}

func (t *ivKeyTarget) blockSize() int  { return t.l.BlockSize() }
func (t *ivKeyTarget) prefixLen() *int { return nil }
func (t *ivKeyTarget) ops() []string   { return []string{opEncrypt, opDecrypt} }

func (t *ivKeyTarget) query(q Query) (Answer, error) {
	if q.Op == opEncrypt {
		out, err := t.l.Encrypt(q.Input)
		return Answer{Output: out}, err
	}
	out, err := t.l.Decrypt(q.Input)
	var leak *attack.LeakError
	if errors.As(err, &leak) {
		return Answer{Output: leak.Plaintext, Rejected: leak.Reason}, nil
	}
	return Answer{Output: out}, err
}

func (t *ivKeyTarget) attack(m *meter, opts []attack.Option) ([]byte, bool, error) {
	key, err := attack.RecoverIVKey(m.oracle(t.l.Encrypt), m.oracle(t.l.Decrypt), t.l.BlockSize(), opts...)
	if err != nil {
		return nil, false, err
	}
	return key, bytes.Equal(key, t.l.Key()), nil
}

type profileTarget struct {
	l *oracle.ProfileLab
}

func newProfileTarget(algorithm string) (target, error) {
	blk, err := newBlock(algorithm)
	if err != nil {
		return nil, err
	}
	return &profileTarget{l: oracle.NewProfileLab(blk)}, nil
}

func (t *profileTarget) blockSize() int  { return t.l.BlockSize() }
func (t *profileTarget) prefixLen() *int { return ptr(len(oracle.ProfilePrefix)) }
func (t *profileTarget) ops() []string   { return []string{opProfile, opDecode} }

func (t *profileTarget) query(q Query) (Answer, error) {
	if q.Op == opDecode {
		p, err := t.l.Decode(q.Input)
		if err != nil {
			return Answer{}, err
		}
		return Answer{Profile: p}, nil
	}
	out, err := t.l.Query(q.Input)
	return Answer{Output: out}, err
}

// profileTail is everything the encoder writes after the email up to the
// role value.
const profileTail = "&uid=10&role="

// attack picks an email that pushes the role value to the start of a block,
// then splices in a block encrypting "admin".
func (t *profileTarget) attack(m *meter, _ []attack.Option) ([]byte, bool, error) {
	bs := t.l.BlockSize()
	fixed := len(oracle.ProfilePrefix) + len(profileTail)
	n := (bs - fixed%bs) % bs
	for n < len("@bar.com")+1 {
		n += bs
	}
	email := strings.Repeat("f", n-len("@bar.com")) + "@bar.com"

	ct, err := attack.CutAndPaste(m.oracle(t.l.Query), len(oracle.ProfilePrefix), bs, []byte(email), (fixed+n)/bs, []byte("admin"))
	if err != nil {
		return nil, false, err
	}
	p, err := t.l.Decode(ct)
	if err != nil {
		return ct, false, nil
	}
	return ct, p.Role == "admin" && p.Email == email, nil
}

type editTarget struct {
	l      *oracle.EditLab
	n      int
	secret []byte
	ct     []byte
}

func newEditTarget(algorithm string) (target, error) {
	blk, err := newBlock(algorithm)
	if err != nil {
		return nil, err
	}
	l, err := oracle.NewEditLab(blk)
	if err != nil {
		return nil, err
	}
	secret := phrase()
	ct, err := l.Encrypt(secret)
	if err != nil {
		return nil, err
	}
	return &editTarget{l: l, n: blk.BlockSize(), secret: secret, ct: ct}, nil
}

func (t *editTarget) blockSize() int  { return t.n }
func (t *editTarget) prefixLen() *int { return nil }
func (t *editTarget) ops() []string   { return []string{opCiphertext, opEdit} }

func (t *editTarget) query(q Query) (Answer, error) {
	if q.Op == opCiphertext {
		return Answer{Output: append([]byte(nil), t.ct...)}, nil
	}
	if q.Ciphertext == nil {
		return Answer{}, fmt.Errorf("%w: edit needs ciphertext", ErrMissingPayload)
	}
	out, err := t.l.Edit(q.Ciphertext, q.Offset, q.Input)
	return Answer{Output: out}, err
}

func (t *editTarget) attack(m *meter, _ []attack.Option) ([]byte, bool, error) {
	pt, err := attack.RecoverEditPlaintext(m.editor(t.l), t.ct)
	if err != nil {
		return nil, false, err
	}
	return pt, bytes.Equal(pt, t.secret), nil
}
