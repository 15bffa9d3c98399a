package auth

import (
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

var (
	// 改行類 (\n \r U+2028 U+2029) を含まない 1 行の文字列
	singleLinePattern = regexp.MustCompile(`^[^\n\r\x{2028}\x{2029}]*$`)
	emailPattern      = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// lineLength は改行を含まない s の UTF-16 コード単位数を返します。
// 改行を含む場合は -1 を返します。
func lineLength(s string) int {
	if !singleLinePattern.MatchString(s) {
		return -1
	}
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func lineWithin(s string, lo, hi int) bool {
	n := lineLength(s)
	return n >= lo && n <= hi
}

// storable は保存先に格納できる文字列かどうかを返します。NUL と不正な UTF-8 は不可です。
func storable(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// サインアップ時のエラーメッセージ
const (
	msgInvalidUserName  = "Invalid user name."
	msgInvalidFirstName = "Invalid first name."
	msgInvalidLastName  = "Invalid last name."
	msgPasswordLength   = "Password must be 8–20 characters."
	msgPasswordMismatch = "Passwords do not match."
	msgInvalidEmail     = "Invalid email address."
	msgUserNameInUse    = "User name already in use."
)

type signupRequest struct {
	UserName  string `form:"userName" json:"userName"`
	FirstName string `form:"firstName" json:"firstName"`
	LastName  string `form:"lastName" json:"lastName"`
	Password  string `form:"password" json:"password"`
	Verify    string `form:"verify" json:"verify"`
	Email     string `form:"email" json:"email"`
}

// signupErrors はフィールドごとのエラーです。1 回の検証で埋まるのは 1 つだけです。
type signupErrors struct {
	UserName  string
	FirstName string
	LastName  string
	Password  string
	Verify    string
	Email     string
}

// view はサインアップ画面の表示内容を返します。
// 入力値のうち再表示するのはユーザー名とメールアドレスのみです。
func (e signupErrors) view(req *signupRequest) gin.H {
	return gin.H{
		"userName":       req.UserName,
		"email":          req.Email,
		"userNameError":  e.UserName,
		"firstNameError": e.FirstName,
		"lastNameError":  e.LastName,
		"passwordError":  e.Password,
		"verifyError":    e.Verify,
		"emailError":     e.Email,
	}
}

// validateSignup は規則を順に検査し、最初に失敗した項目でだけエラーを返します。
func validateSignup(req *signupRequest) (signupErrors, bool) {
	var errs signupErrors
	switch {
	case !storable(req.UserName) || !lineWithin(req.UserName, 1, 20):
		errs.UserName = msgInvalidUserName
	case !storable(req.FirstName) || !lineWithin(req.FirstName, 1, 100):
		errs.FirstName = msgInvalidFirstName
	case !storable(req.LastName) || !lineWithin(req.LastName, 1, 100):
		errs.LastName = msgInvalidLastName
	case !lineWithin(req.Password, 8, 20):
		errs.Password = msgPasswordLength
	case req.Password != req.Verify:
		errs.Verify = msgPasswordMismatch
	case req.Email != "" && (!storable(req.Email) || !emailPattern.MatchString(req.Email)):
		errs.Email = msgInvalidEmail
	default:
		return errs, true
	}
	return errs, false
}
