// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package foundation

import (
	"net"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
)

const uriClassName = "Windows.Foundation.Uri"

var (
	IID_IUriRuntimeClass        = &com.IID{Data1: 0x9E365E57, Data2: 0x48B2, Data3: 0x4160, Data4: [8]byte{0x95, 0x6F, 0xC7, 0x38, 0x51, 0x20, 0xBB, 0xFC}}
	IID_IUriRuntimeClassFactory = &com.IID{Data1: 0x44A9796F, Data2: 0x723E, Data3: 0x4FDF, Data4: [8]byte{0xA2, 0x18, 0x03, 0x3E, 0x75, 0xB0, 0xC0, 0x84}}
)

// Vtable indices of IUriRuntimeClass.
const (
	uriAbsoluteUri = 6 + iota
	uriDisplayUri
	uriDomain
	uriExtension
	uriFragment
	uriHost
	uriPassword
	uriPath
	uriQuery
	uriQueryParsed
	uriRawUri
	uriSchemeName
	uriUserName
	uriPort
	uriSuspicious
	uriEquals
	uriCombineUri
	uriMethodCount
)

// IUriRuntimeClassABI is the ABI of Windows.Foundation.IUriRuntimeClass.
type IUriRuntimeClassABI struct {
	winrt.IInspectableABI
}

func (abi *IUriRuntimeClassABI) method(i int) uintptr {
	return unsafe.Slice(abi.Vtbl, uriMethodCount)[i]
}

func (abi *IUriRuntimeClassABI) getString(i int) (string, error) {
	out := com.Out[winrt.HString]()
	if err := com.CallHRESULT(abi.method(i), uintptr(unsafe.Pointer(abi)), uintptr(unsafe.Pointer(out))); err != nil {
		return "", err
	}
	defer out.Close()
	return out.String(), nil
}

// Uri is the Windows.Foundation.Uri runtime class.
type Uri struct {
	com.GenericObject[IUriRuntimeClassABI]
}

func (Uri) GetIID() *com.IID {
	return IID_IUriRuntimeClass
}

func (Uri) Signature() string {
	return winrt.RuntimeClassSignature(uriClassName, winrt.InterfaceSignature(IID_IUriRuntimeClass))
}

func (Uri) Make(r com.ABIReceiver) any {
	return Uri{com.Wrap[IUriRuntimeClassABI](r)}
}

// Clone returns a new owning reference to the same Uri.
func (u Uri) Clone() Uri {
	return Uri{u.GenericObject.Clone()}
}

func (u Uri) getString(i int) (string, error) {
	if u.IsNull() {
		return "", wingrt.Error(wingrt.E_POINTER)
	}
	return u.UnsafeUnwrap().getString(i)
}

// AbsoluteUri returns the normalized, fully qualified form of the URI.
func (u Uri) AbsoluteUri() (string, error) { return u.getString(uriAbsoluteUri) }

// DisplayUri returns the URI without any user information.
func (u Uri) DisplayUri() (string, error) { return u.getString(uriDisplayUri) }

// Domain returns the registrable domain of the host.
func (u Uri) Domain() (string, error) { return u.getString(uriDomain) }

// Extension returns the file name extension of the path, including the dot.
func (u Uri) Extension() (string, error) { return u.getString(uriExtension) }

// Fragment returns the fragment, including the leading '#'.
func (u Uri) Fragment() (string, error) { return u.getString(uriFragment) }

func (u Uri) Host() (string, error) { return u.getString(uriHost) }

func (u Uri) Password() (string, error) { return u.getString(uriPassword) }

func (u Uri) Path() (string, error) { return u.getString(uriPath) }

// Query returns the query string, including the leading '?'.
func (u Uri) Query() (string, error) { return u.getString(uriQuery) }

// RawUri returns the string the Uri was created from.
func (u Uri) RawUri() (string, error) { return u.getString(uriRawUri) }

func (u Uri) SchemeName() (string, error) { return u.getString(uriSchemeName) }

func (u Uri) UserName() (string, error) { return u.getString(uriUserName) }

// Port returns the explicit port, or the scheme's default port.
func (u Uri) Port() (int32, error) {
	if u.IsNull() {
		return 0, wingrt.Error(wingrt.E_POINTER)
	}
	abi := u.UnsafeUnwrap()
	out := com.Out[int32]()
	if err := com.CallHRESULT(abi.method(uriPort), uintptr(unsafe.Pointer(abi)), uintptr(unsafe.Pointer(out))); err != nil {
		return 0, err
	}
	return *out, nil
}

func (u Uri) Suspicious() (bool, error) {
	if u.IsNull() {
		return false, wingrt.Error(wingrt.E_POINTER)
	}
	abi := u.UnsafeUnwrap()
	out := com.Out[bool]()
	if err := com.CallHRESULT(abi.method(uriSuspicious), uintptr(unsafe.Pointer(abi)), uintptr(unsafe.Pointer(out))); err != nil {
		return false, err
	}
	return *out, nil
}

// Equals reports whether u and other identify the same resource.
func (u Uri) Equals(other Uri) (bool, error) {
	if u.IsNull() {
		return false, wingrt.Error(wingrt.E_POINTER)
	}
	abi := u.UnsafeUnwrap()
	out := com.Out[bool]()
	if err := com.CallHRESULT(abi.method(uriEquals), uintptr(unsafe.Pointer(abi)), other.AsRaw(), uintptr(unsafe.Pointer(out))); err != nil {
		return false, err
	}
	return *out, nil
}

// CombineUri resolves relative against u. The caller owns the result.
func (u Uri) CombineUri(relative string) (Uri, error) {
	if u.IsNull() {
		return Uri{}, wingrt.Error(wingrt.E_POINTER)
	}
	rel, err := winrt.NewHString(relative)
	if err != nil {
		return Uri{}, err
	}
	defer rel.Close()

	abi := u.UnsafeUnwrap()
	out := com.Out[winrt.OutSlot]()
	if err := com.CallHRESULT(abi.method(uriCombineUri), uintptr(unsafe.Pointer(abi)), uintptr(rel), out.Addr()); err != nil {
		return Uri{}, err
	}
	return winrt.TakeOut[Uri](out)
}

// uri is the in-process Windows.Foundation.Uri.
type uri struct {
	raw    string
	parsed *url.URL
}

func (*uri) RuntimeClassName() string {
	return uriClassName
}

var defaultPorts = map[string]int32{
	"ftp":   21,
	"http":  80,
	"https": 443,
	"ws":    80,
	"wss":   443,
}

func (u *uri) absolute() string {
	c := *u.parsed
	if c.Path == "" && c.Host != "" {
		c.Path = "/"
	}
	return c.String()
}

func (u *uri) display() string {
	c := *u.parsed
	c.User = nil
	if c.Path == "" && c.Host != "" {
		c.Path = "/"
	}
	return c.String()
}

func (u *uri) domain() string {
	host := u.parsed.Hostname()
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

func (u *uri) port() int32 {
	if p := u.parsed.Port(); p != "" {
		n, err := strconv.ParseInt(p, 10, 32)
		if err == nil {
			return int32(n)
		}
	}
	if p, ok := defaultPorts[u.parsed.Scheme]; ok {
		return p
	}
	return -1
}

func (u *uri) stringProperty(index int) (string, bool) {
	p := u.parsed
	switch index {
	case uriAbsoluteUri:
		return u.absolute(), true
	case uriDisplayUri:
		return u.display(), true
	case uriDomain:
		return u.domain(), true
	case uriExtension:
		return path.Ext(p.Path), true
	case uriFragment:
		if p.Fragment == "" {
			return "", true
		}
		return "#" + p.EscapedFragment(), true
	case uriHost:
		return p.Hostname(), true
	case uriPassword:
		pw, _ := p.User.Password()
		return pw, true
	case uriPath:
		if p.Path == "" && p.Host != "" {
			return "/", true
		}
		return p.EscapedPath(), true
	case uriQuery:
		if p.RawQuery == "" {
			return "", true
		}
		return "?" + p.RawQuery, true
	case uriRawUri:
		return u.raw, true
	case uriSchemeName:
		return p.Scheme, true
	case uriUserName:
		return p.User.Username(), true
	}
	return "", false
}

// uriInterfaces is assigned in init: CombineUri creates Uri objects, so the
// table refers to itself.
var uriInterfaces func() []com.Interface

func init() {
	uriInterfaces = sync.OnceValue(buildURIInterfaces)
}

func buildURIInterfaces() []com.Interface {
	methods := make([]any, 0, uriMethodCount-6)
	for i := uriAbsoluteUri; i < uriMethodCount; i++ {
		switch i {
		case uriQueryParsed:
			// WwwFormUrlDecoder is not implemented in-process.
			methods = append(methods, com.NotImplemented(2))
		case uriPort:
			methods = append(methods, uriGetPort)
		case uriSuspicious:
			methods = append(methods, uriGetSuspicious)
		case uriEquals:
			methods = append(methods, uriEqualsMethod)
		case uriCombineUri:
			methods = append(methods, uriCombineMethod)
		default:
			methods = append(methods, uriStringGetter(i))
		}
	}
	return []com.Interface{
		{
			Vtable: winrt.NewInspectableVtable(methods...),
			IIDs:   []*com.IID{IID_IUriRuntimeClass, winrt.IID_IInspectable},
		},
	}
}

// CreateUri parses rawURI into an in-process Uri. rawURI must be absolute;
// anything else fails with E_INVALIDARG.
func CreateUri(rawURI string) (Uri, error) {
	parsed, err := url.Parse(rawURI)
	if err != nil || !parsed.IsAbs() {
		return Uri{}, wingrt.Error(wingrt.E_INVALIDARG)
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	return newURI(&uri{raw: rawURI, parsed: parsed}), nil
}

func newURI(impl *uri) Uri {
	s := com.NewServer(impl, uriInterfaces(), com.WithName(uriClassName))
	return Uri{com.WrapInterface[IUriRuntimeClassABI](s.Interface(0))}
}

func uriImpl(s *com.Server) *uri {
	return s.Impl().(*uri)
}

func uriStringGetter(index int) func(this, out uintptr) uintptr {
	return func(this, out uintptr) uintptr {
		return com.Dispatch(this, "IUriRuntimeClass", func(s *com.Server, _ int) wingrt.HRESULT {
			v, ok := uriImpl(s).stringProperty(index)
			if !ok {
				return wingrt.E_NOTIMPL
			}
			return wingrt.HRESULTFromError(winrt.StoreOut(out, v))
		})
	}
}

func uriGetPort(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_Port", func(s *com.Server, _ int) wingrt.HRESULT {
		return wingrt.HRESULTFromError(winrt.StoreOut(out, uriImpl(s).port()))
	})
}

func uriGetSuspicious(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_Suspicious", func(*com.Server, int) wingrt.HRESULT {
		return wingrt.HRESULTFromError(winrt.StoreOut(out, false))
	})
}

func uriEqualsMethod(this, other, out uintptr) uintptr {
	return com.Dispatch(this, "Equals", func(s *com.Server, _ int) wingrt.HRESULT {
		o, err := winrt.FromABI[Uri](other)
		if err != nil {
			return wingrt.HRESULTFromError(err)
		}
		if o.IsNull() {
			return wingrt.E_POINTER
		}
		// Other may be any implementation, so compare through its ABI.
		abs, err := o.AbsoluteUri()
		if err != nil {
			return wingrt.HRESULTFromError(err)
		}
		return wingrt.HRESULTFromError(winrt.StoreOut(out, abs == uriImpl(s).absolute()))
	})
}

func uriCombineMethod(this, relative, out uintptr) uintptr {
	return com.Dispatch(this, "CombineUri", func(s *com.Server, _ int) wingrt.HRESULT {
		rel, err := winrt.FromABI[string](relative)
		if err != nil {
			return wingrt.HRESULTFromError(err)
		}
		ref, err := url.Parse(rel)
		if err != nil {
			return wingrt.E_INVALIDARG
		}
		resolved := uriImpl(s).parsed.ResolveReference(ref)
		combined := newURI(&uri{raw: resolved.String(), parsed: resolved})
		defer combined.Close()
		return wingrt.HRESULTFromError(winrt.StoreOut(out, combined))
	})
}
