package oracle

import (
	"crypto/cipher"
	"fmt"
	"strconv"
	"strings"

	"oraclelab/internal/services/blockcipher"
)

// ProfilePrefix precedes the attacker-chosen email in an encoded profile.
const ProfilePrefix = "email="

type Profile struct {
	Email string `json:"email"`
	UID   int    `json:"uid"`
	Role  string `json:"role"`
}

// ProfileFor builds the profile of an ordinary user; metacharacters are
// stripped from the email.
func ProfileFor(email string) Profile {
	email = strings.NewReplacer("&", "", "=", "").Replace(email)
	return Profile{Email: email, UID: 10, Role: "user"}
}

func (p Profile) Encode() string {
	return fmt.Sprintf("email=%s&uid=%d&role=%s", p.Email, p.UID, p.Role)
}

func ParseProfile(s string) (Profile, error) {
	var p Profile
	for _, pair := range strings.Split(strings.TrimSpace(s), "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		switch k {
		case "email":
			p.Email = v
		case "uid":
			uid, err := strconv.Atoi(v)
			if err != nil {
				return Profile{}, fmt.Errorf("uid: %w", err)
			}
			p.UID = uid
		case "role":
			p.Role = v
		}
	}
	return p, nil
}

// ProfileLab encrypts encoded profiles under ECB.
type ProfileLab struct {
	blk cipher.Block
}

func NewProfileLab(blk cipher.Block) *ProfileLab {
	return &ProfileLab{blk: blk}
}

func (l *ProfileLab) BlockSize() int { return l.blk.BlockSize() }

// Query encrypts the profile of the given email.
func (l *ProfileLab) Query(email []byte) ([]byte, error) {
	pt := []byte(ProfileFor(string(email)).Encode())
	return blockcipher.EncryptECB(l.blk, blockcipher.PKCS7Pad(pt, l.blk.BlockSize()))
}

func (l *ProfileLab) Decode(ct []byte) (Profile, error) {
	pt, err := blockcipher.DecryptECB(l.blk, ct)
	if err != nil {
		return Profile{}, err
	}
	pt, err = blockcipher.PKCS7Unpad(pt, l.blk.BlockSize())
	if err != nil {
		return Profile{}, err
	}
	return ParseProfile(string(pt))
}
