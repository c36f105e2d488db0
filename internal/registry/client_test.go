package registry_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/distaudit/internal/registry"
)

const (
	testProjectNameConstant      = "sample-pkg"
	universalWheelNameConstant   = "sample_pkg-1.0.0-py3-none-any.whl"
	platformWheelNameConstant    = "sample_pkg-1.0.0-cp311-cp311-manylinux_x86_64.whl"
	sourceArchiveNameConstant    = "sample-pkg-1.0.0.tar.gz"
	universalWheelPayloadContent = "universal wheel bytes"
	platformWheelPayloadContent  = "platform wheel bytes"
	sourceArchivePayloadContent  = "source archive bytes"
)

type publishedFile struct {
	FileName          string            `json:"filename"`
	URL               string            `json:"url"`
	PackageType       string            `json:"packagetype"`
	UploadTimeISO8601 string            `json:"upload_time_iso_8601,omitempty"`
	Digests           map[string]string `json:"digests"`
}

func sha256Hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

type registryFixture struct {
	server   *httptest.Server
	releases map[string][]publishedFile
	payloads map[string]string
}

func newRegistryFixture(testInstance *testing.T) *registryFixture {
	fixture := &registryFixture{releases: map[string][]publishedFile{}, payloads: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/pypi/"+testProjectNameConstant+"/json", func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(testInstance, json.NewEncoder(writer).Encode(map[string]any{"releases": fixture.releases}))
	})
	mux.HandleFunc("/pypi/"+testProjectNameConstant+"/", func(writer http.ResponseWriter, request *http.Request) {
		version := request.URL.Path[len("/pypi/"+testProjectNameConstant+"/") : len(request.URL.Path)-len("/json")]
		files, exists := fixture.releases[version]
		if !exists {
			http.NotFound(writer, request)
			return
		}
		require.NoError(testInstance, json.NewEncoder(writer).Encode(map[string]any{"urls": files}))
	})
	mux.HandleFunc("/files/", func(writer http.ResponseWriter, request *http.Request) {
		payload, exists := fixture.payloads[request.URL.Path]
		if !exists {
			http.NotFound(writer, request)
			return
		}
		_, _ = writer.Write([]byte(payload))
	})
	fixture.server = httptest.NewServer(mux)
	testInstance.Cleanup(fixture.server.Close)
	return fixture
}

func (fixture *registryFixture) publish(version string, fileName string, packageType string, uploadTime string, payload string) {
	filePath := "/files/" + fileName
	fixture.payloads[filePath] = payload
	fixture.releases[version] = append(fixture.releases[version], publishedFile{
		FileName:          fileName,
		URL:               fixture.server.URL + filePath,
		PackageType:       packageType,
		UploadTimeISO8601: uploadTime,
		Digests:           map[string]string{"sha256": sha256Hex(payload)},
	})
}

func newClient(testInstance *testing.T, fixture *registryFixture, preference registry.Preference) *registry.Client {
	client, creationError := registry.NewClient(zap.NewNop(), fixture.server.Client(), registry.Configuration{
		BaseURL:    fixture.server.URL + "/",
		Preference: preference,
	})
	require.NoError(testInstance, creationError)
	return client
}

func TestListVersionsOrdersByPublicationTime(testInstance *testing.T) {
	fixture := newRegistryFixture(testInstance)
	fixture.publish("1.10.0", "a.whl", "bdist_wheel", "2024-03-01T00:00:00.000000Z", "a")
	fixture.publish("1.2.0", "b.whl", "bdist_wheel", "2024-01-01T00:00:00.000000Z", "b")
	fixture.publish("1.2.0", "b.tar.gz", "sdist", "2023-12-31T23:00:00.000000Z", "b2")
	fixture.publish("1.9.0", "c.whl", "bdist_wheel", "2024-02-01T00:00:00.000000Z", "c")
	fixture.publish("1.9.1", "d.whl", "bdist_wheel", "2024-02-01T00:00:00.000000Z", "d")
	fixture.releases["0.0.1"] = []publishedFile{}

	versions, listError := newClient(testInstance, fixture, registry.PreferenceAuto).ListVersions(context.Background(), testProjectNameConstant)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"0.0.1", "1.2.0", "1.9.0", "1.9.1", "1.10.0"}, versions)
}

func TestGetDistributionSelectsByPreference(testInstance *testing.T) {
	testCases := []struct {
		name             string
		preference       registry.Preference
		publishUniversal bool
		expectedFileName string
		expectedPayload  string
	}{
		{name: "auto_prefers_universal_wheel", preference: registry.PreferenceAuto, publishUniversal: true, expectedFileName: universalWheelNameConstant, expectedPayload: universalWheelPayloadContent},
		{name: "auto_falls_back_to_any_wheel", preference: registry.PreferenceAuto, expectedFileName: platformWheelNameConstant, expectedPayload: platformWheelPayloadContent},
		{name: "blank_means_auto", preference: "", publishUniversal: true, expectedFileName: universalWheelNameConstant, expectedPayload: universalWheelPayloadContent},
		{name: "sdist", preference: registry.PreferenceSdist, publishUniversal: true, expectedFileName: sourceArchiveNameConstant, expectedPayload: sourceArchivePayloadContent},
		{name: "wheel", preference: registry.PreferenceWheel, expectedFileName: platformWheelNameConstant, expectedPayload: platformWheelPayloadContent},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newRegistryFixture(testInstance)
			fixture.publish("1.0.0", sourceArchiveNameConstant, "sdist", "", sourceArchivePayloadContent)
			fixture.publish("1.0.0", platformWheelNameConstant, "bdist_wheel", "", platformWheelPayloadContent)
			if testCase.publishUniversal {
				fixture.publish("1.0.0", universalWheelNameConstant, "bdist_wheel", "", universalWheelPayloadContent)
			}

			distribution, fetchError := newClient(testInstance, fixture, testCase.preference).GetDistribution(context.Background(), testProjectNameConstant, "1.0.0")
			require.NoError(testInstance, fetchError)
			require.Equal(testInstance, testCase.expectedFileName, distribution.FileName)
			require.Equal(testInstance, testCase.expectedPayload, string(distribution.Data))
		})
	}
}

func TestGetDistributionFailures(testInstance *testing.T) {
	testCases := []struct {
		name       string
		version    string
		preference registry.Preference
		prepare    func(fixture *registryFixture)
		assertion  func(testInstance *testing.T, fetchError error)
	}{
		{
			name:    "unknown_version",
			version: "9.9.9",
			assertion: func(testInstance *testing.T, fetchError error) {
				var statusError registry.HTTPStatusError
				require.True(testInstance, errors.As(fetchError, &statusError))
				require.Equal(testInstance, http.StatusNotFound, statusError.StatusCode)
			},
		},
		{
			name:       "no_wheel_published",
			version:    "1.0.0",
			preference: registry.PreferenceWheel,
			prepare: func(fixture *registryFixture) {
				fixture.publish("1.0.0", sourceArchiveNameConstant, "sdist", "", sourceArchivePayloadContent)
			},
			assertion: func(testInstance *testing.T, fetchError error) {
				var notFoundError registry.DistributionNotFoundError
				require.True(testInstance, errors.As(fetchError, &notFoundError))
				require.Equal(testInstance, "1.0.0", notFoundError.Version)
			},
		},
		{
			name:    "digest_mismatch",
			version: "1.0.0",
			prepare: func(fixture *registryFixture) {
				fixture.publish("1.0.0", universalWheelNameConstant, "bdist_wheel", "", universalWheelPayloadContent)
				fixture.payloads["/files/"+universalWheelNameConstant] = "tampered"
			},
			assertion: func(testInstance *testing.T, fetchError error) {
				var mismatchError registry.DigestMismatchError
				require.True(testInstance, errors.As(fetchError, &mismatchError))
				require.Equal(testInstance, universalWheelNameConstant, mismatchError.FileName)
			},
		},
		{
			name:    "missing_file",
			version: "1.0.0",
			prepare: func(fixture *registryFixture) {
				fixture.publish("1.0.0", universalWheelNameConstant, "bdist_wheel", "", universalWheelPayloadContent)
				delete(fixture.payloads, "/files/"+universalWheelNameConstant)
			},
			assertion: func(testInstance *testing.T, fetchError error) {
				var statusError registry.HTTPStatusError
				require.True(testInstance, errors.As(fetchError, &statusError))
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newRegistryFixture(testInstance)
			if testCase.prepare != nil {
				testCase.prepare(fixture)
			}
			_, fetchError := newClient(testInstance, fixture, testCase.preference).GetDistribution(context.Background(), testProjectNameConstant, testCase.version)
			require.Error(testInstance, fetchError)
			testCase.assertion(testInstance, fetchError)
		})
	}
}

func TestGetDistributionEnforcesResponseSizeLimit(testInstance *testing.T) {
	fixture := newRegistryFixture(testInstance)
	fixture.publish("1.0.0", universalWheelNameConstant, "bdist_wheel", "2024-01-01T00:00:00.000000Z", strings.Repeat("x", 2048))

	client, creationError := registry.NewClient(zap.NewNop(), fixture.server.Client(), registry.Configuration{
		BaseURL:         fixture.server.URL,
		MaxResponseSize: 1024,
	})
	require.NoError(testInstance, creationError)

	_, fetchError := client.GetDistribution(context.Background(), testProjectNameConstant, "1.0.0")
	var sizeError registry.ResponseTooLargeError
	require.True(testInstance, errors.As(fetchError, &sizeError))
	require.Equal(testInstance, int64(1024), sizeError.Limit)
	require.Equal(testInstance, fixture.server.URL+"/files/"+universalWheelNameConstant, sizeError.URL)

	distribution, defaultLimitError := newClient(testInstance, fixture, registry.PreferenceAuto).GetDistribution(context.Background(), testProjectNameConstant, "1.0.0")
	require.NoError(testInstance, defaultLimitError)
	require.Len(testInstance, distribution.Data, 2048)
}

func TestListVersionsRejectsMalformedDocument(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte("{not json"))
	}))
	testInstance.Cleanup(server.Close)

	client, creationError := registry.NewClient(nil, server.Client(), registry.Configuration{BaseURL: server.URL})
	require.NoError(testInstance, creationError)

	_, listError := client.ListVersions(context.Background(), testProjectNameConstant)
	var decodingError registry.ResponseDecodingError
	require.True(testInstance, errors.As(listError, &decodingError))
}

func TestNewClientValidatesConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configuration registry.Configuration
	}{
		{name: "missing_base_url", configuration: registry.Configuration{BaseURL: "  "}},
		{name: "unknown_preference", configuration: registry.Configuration{BaseURL: registry.DefaultBaseURL, Preference: "egg"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, creationError := registry.NewClient(zap.NewNop(), nil, testCase.configuration)
			var inputError registry.InvalidInputError
			require.True(testInstance, errors.As(creationError, &inputError))
		})
	}
}

func TestRequestsRequireProjectAndVersion(testInstance *testing.T) {
	client, creationError := registry.NewClient(zap.NewNop(), nil, registry.Configuration{BaseURL: registry.DefaultBaseURL})
	require.NoError(testInstance, creationError)

	_, listError := client.ListVersions(context.Background(), "")
	require.ErrorAs(testInstance, listError, &registry.InvalidInputError{})

	_, fetchError := client.GetDistribution(context.Background(), testProjectNameConstant, " ")
	require.ErrorAs(testInstance, fetchError, &registry.InvalidInputError{})
}
