package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/otaclient/iot-logging-proxy/internal/util/file"
)

// PKCS11Config names the module library, slot, and user PIN needed to open
// the PKCS#11 token holding key material; the object label itself comes
// from the pkcs11: URI of each key-material reference.
type PKCS11Config struct {
	Library string
	Slot    uint
	UserPin string
}

// DeviceIdentity is the normalized, immutable result of loading either the
// v1 or v2 on-disk identity dialect. Nothing downstream ever sees the raw
// dialect documents; they are parsed once here and discarded.
type DeviceIdentity struct {
	AccountID          string
	CAPath             string
	PrivateKeyRef      string
	CertificateRef     string
	ThingName          string
	Profile            string
	Region             string
	CredentialEndpoint string
	PKCS11             *PKCS11Config
}

// RoleAlias is the IoT role alias used to vend credentials for this device.
func (d *DeviceIdentity) RoleAlias() string {
	return fmt.Sprintf("%s-autoware-adapter-credentials-iot-secrets-access-role-alias", d.Profile)
}

// LogGroup is the remote log group that regular log records are uploaded
// to.
func (d *DeviceIdentity) LogGroup() string {
	return fmt.Sprintf("/aws/greengrass/edge/%s/%s/%s-edge-otaclient", d.Region, d.AccountID, d.Profile)
}

// MetricsLogGroup is the remote log group that METRICS records are
// uploaded to, distinct from LogGroup.
func (d *DeviceIdentity) MetricsLogGroup() string {
	return fmt.Sprintf("/aws/greengrass/edge/%s/%s/%s-edge-otaclient-metrics", d.Region, d.AccountID, d.Profile)
}

// RefreshURL is the credential-provider endpoint this device's credential
// provider performs its mTLS GET against.
func (d *DeviceIdentity) RefreshURL() string {
	return fmt.Sprintf("https://%s/role-aliases/%s/credentials", d.CredentialEndpoint, d.RoleAlias())
}

// UsesPKCS11 reports whether either key-material reference names a
// PKCS#11 object rather than a filesystem path.
func (d *DeviceIdentity) UsesPKCS11() bool {
	return IsPKCS11Ref(d.PrivateKeyRef) || IsPKCS11Ref(d.CertificateRef)
}

var profileNamePattern = regexp.MustCompile(`^(thing[/:])?(?P<profile>[\w-]+)-edge-(?P<id>[\w-]+)-.*$`)

func deriveProfile(thingName string) (string, error) {
	m := profileNamePattern.FindStringSubmatch(thingName)
	if m == nil {
		return "", wrapConfigError("thing name does not match the expected profile pattern: "+thingName, nil)
	}
	return m[profileNamePattern.SubexpIndex("profile")], nil
}

func stripFileScheme(path string) string {
	return strings.TrimPrefix(path, "file://")
}

// ProfileEntry is one row of the profile table, mapping a profile name to
// an account ID (used by v2 identities, which don't carry one inline) and a
// credential endpoint (used by v1 identities, and by v2 identities without
// an inline iotCredEndpoint).
type ProfileEntry struct {
	ProfileName        string `json:"profile_name"`
	AccountID          string `json:"account_id"`
	CredentialEndpoint string `json:"credential_endpoint"`
}

type profileTable []ProfileEntry

func (t profileTable) lookup(profile string) (ProfileEntry, bool) {
	for _, e := range t {
		if e.ProfileName == profile {
			return e, true
		}
	}
	return ProfileEntry{}, false
}

func loadProfileTable(path string) (profileTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapConfigError("reading profile table", err)
	}
	var table profileTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, wrapConfigError("parsing profile table", err)
	}
	return table, nil
}

// Load reads whichever of the v2 (YAML) or v1 (JSON) identity dialects is
// present at the given paths, v2 taking priority, and derives a
// DeviceIdentity from it plus the profile table.
func Load(v1Path, v2Path, profileTablePath string) (*DeviceIdentity, error) {
	var (
		id  *DeviceIdentity
		err error
	)

	if file.Exists(v2Path) {
		id, err = loadV2(v2Path, profileTablePath)
	} else {
		id, err = loadV1(v1Path, profileTablePath)
	}
	if err != nil {
		return nil, err
	}

	if id.UsesPKCS11() && id.PKCS11 == nil {
		return nil, wrapConfigError("pkcs11 key material referenced but no pkcs11 block configured", nil)
	}

	return id, nil
}

type v1Document struct {
	CoreThing struct {
		ThingArn string `json:"thingArn"`
	} `json:"coreThing"`
	Crypto struct {
		CAPath     string `json:"caPath"`
		Principals struct {
			IoTCertificate struct {
				PrivateKeyPath  string `json:"privateKeyPath"`
				CertificatePath string `json:"certificatePath"`
			} `json:"IoTCertificate"`
		} `json:"principals"`
	} `json:"crypto"`
}

func loadV1(path, profileTablePath string) (*DeviceIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapConfigError("reading v1 identity config", err)
	}

	var doc v1Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, wrapConfigError("parsing v1 identity config", err)
	}

	thingArn, err := parseARN(doc.CoreThing.ThingArn)
	if err != nil {
		return nil, err
	}

	thingName := thingArn.ResourceID
	profile, err := deriveProfile(thingName)
	if err != nil {
		return nil, err
	}

	table, err := loadProfileTable(profileTablePath)
	if err != nil {
		return nil, err
	}
	entry, ok := table.lookup(profile)
	if !ok {
		return nil, wrapConfigError("unknown profile: "+profile, nil)
	}

	return &DeviceIdentity{
		AccountID:          thingArn.AccountID,
		CAPath:             stripFileScheme(doc.Crypto.CAPath),
		PrivateKeyRef:      stripFileScheme(doc.Crypto.Principals.IoTCertificate.PrivateKeyPath),
		CertificateRef:     stripFileScheme(doc.Crypto.Principals.IoTCertificate.CertificatePath),
		ThingName:          thingName,
		Profile:            profile,
		Region:             thingArn.Region,
		CredentialEndpoint: entry.CredentialEndpoint,
	}, nil
}

type v2Document struct {
	System struct {
		ThingName           string `json:"thingName"`
		RootCaPath          string `json:"rootCaPath"`
		PrivateKeyPath      string `json:"privateKeyPath"`
		CertificateFilePath string `json:"certificateFilePath"`
	} `json:"system"`
	Services struct {
		Aws struct {
			Greengrass struct {
				Nucleus struct {
					Configuration struct {
						AwsRegion       string `json:"awsRegion"`
						IotCredEndpoint string `json:"iotCredEndpoint"`
					} `json:"configuration"`
				} `json:"Nucleus"`
				Crypto struct {
					Pkcs11Provider struct {
						Configuration struct {
							Library string `json:"library"`
							UserPin string `json:"userPin"`
							Slot    uint   `json:"slot"`
						} `json:"configuration"`
					} `json:"Pkcs11Provider"`
				} `json:"crypto"`
			} `json:"greengrass"`
		} `json:"aws"`
	} `json:"services"`
}

func loadV2(path, profileTablePath string) (*DeviceIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapConfigError("reading v2 identity config", err)
	}

	var doc v2Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, wrapConfigError("parsing v2 identity config", err)
	}

	profile, err := deriveProfile(doc.System.ThingName)
	if err != nil {
		return nil, err
	}

	table, err := loadProfileTable(profileTablePath)
	if err != nil {
		return nil, err
	}
	entry, ok := table.lookup(profile)
	if !ok {
		return nil, wrapConfigError("unknown profile: "+profile, nil)
	}

	endpoint := doc.Services.Aws.Greengrass.Nucleus.Configuration.IotCredEndpoint
	if endpoint == "" {
		endpoint = entry.CredentialEndpoint
	}

	var pkcs11 *PKCS11Config
	p11 := doc.Services.Aws.Greengrass.Crypto.Pkcs11Provider.Configuration
	if p11.Library != "" {
		pkcs11 = &PKCS11Config{Library: p11.Library, Slot: p11.Slot, UserPin: p11.UserPin}
	}

	return &DeviceIdentity{
		AccountID:          entry.AccountID,
		CAPath:             doc.System.RootCaPath,
		PrivateKeyRef:      doc.System.PrivateKeyPath,
		CertificateRef:     doc.System.CertificateFilePath,
		ThingName:          doc.System.ThingName,
		Profile:            profile,
		Region:             doc.Services.Aws.Greengrass.Nucleus.Configuration.AwsRegion,
		CredentialEndpoint: endpoint,
		PKCS11:             pkcs11,
	}, nil
}
