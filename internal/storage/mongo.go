package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/errs"
)

// Collection names within the cloud database.
const (
	ProjectsCollection = "projects"
	InvitesCollection  = "collaborationInvitations"
	GroupsCollection   = "groups"
	UsersCollection    = "users"
	HostsCollection    = "authorizedServiceHosts"
)

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// MongoProjects is the MongoDB-backed Projects implementation.
type MongoProjects struct {
	coll *mongo.Collection
}

// NewMongoProjects wraps the project-metadata collection.
func NewMongoProjects(db *mongo.Database) *MongoProjects {
	return &MongoProjects{coll: db.Collection(ProjectsCollection)}
}

var _ Projects = (*MongoProjects)(nil)

func (s *MongoProjects) findOne(ctx context.Context, filter bson.M) (*api.ProjectMetadata, error) {
	var md api.ProjectMetadata
	err := s.coll.FindOne(ctx, filter).Decode(&md)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrProjectNotFound
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	return &md, nil
}

func (s *MongoProjects) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*api.ProjectMetadata, error) {
	var md api.ProjectMetadata
	err := s.coll.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&md)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrProjectNotFound
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	return &md, nil
}

func (s *MongoProjects) ByID(ctx context.Context, id api.ProjectID) (*api.ProjectMetadata, error) {
	return s.findOne(ctx, bson.M{"id": id})
}

func (s *MongoProjects) ByOwnerAndName(ctx context.Context, owner, name string) (*api.ProjectMetadata, error) {
	return s.findOne(ctx, bson.M{"owner": owner, "name": name})
}

func (s *MongoProjects) NamesByOwner(ctx context.Context, owner string) ([]string, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"owner": owner},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, errs.Store(err)
	}
	var docs []struct {
		Name string `bson:"name"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errs.Store(err)
	}
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Name
	}
	return names, nil
}

func (s *MongoProjects) Insert(ctx context.Context, md api.ProjectMetadata) error {
	if _, err := s.coll.InsertOne(ctx, md); err != nil {
		return errs.Store(err)
	}
	return nil
}

func (s *MongoProjects) Rename(ctx context.Context, id api.ProjectID, name string) (*api.ProjectMetadata, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{"name": name, "updated": time.Now().UTC()}})
}

func (s *MongoProjects) SetState(ctx context.Context, id api.ProjectID, state api.PublishState) (*api.ProjectMetadata, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"state": state}})
}

func (s *MongoProjects) SetSaveState(ctx context.Context, id api.ProjectID, state api.SaveState) (*api.ProjectMetadata, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"saveState": state}})
}

func (s *MongoProjects) MarkBroken(ctx context.Context, id api.ProjectID) (bool, error) {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"id": id, "saveState": api.SaveStateTransient},
		bson.M{"$set": bson.M{"saveState": api.SaveStateBroken}})
	if err != nil {
		return false, errs.Store(err)
	}
	return result.MatchedCount > 0, nil
}

func (s *MongoProjects) ScheduleDeletion(ctx context.Context, id api.ProjectID, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"deleteAt": at}})
	if err != nil {
		return errs.Store(err)
	}
	return nil
}

func (s *MongoProjects) CancelDeletion(ctx context.Context, id api.ProjectID) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$unset": bson.M{"deleteAt": ""}})
	if err != nil {
		return errs.Store(err)
	}
	return nil
}

func (s *MongoProjects) Delete(ctx context.Context, id api.ProjectID) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return errs.Store(err)
	}
	return nil
}

func (s *MongoProjects) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.coll.DeleteMany(ctx, bson.M{"deleteAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, errs.Store(err)
	}
	return result.DeletedCount, nil
}

func (s *MongoProjects) AddCollaborator(ctx context.Context, id api.ProjectID, username string) (*api.ProjectMetadata, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id},
		bson.M{"$addToSet": bson.M{"collaborators": username}})
}

func (s *MongoProjects) RemoveCollaborator(ctx context.Context, id api.ProjectID, username string) (*api.ProjectMetadata, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id},
		bson.M{"$pull": bson.M{"collaborators": username}})
}

func (s *MongoProjects) UpsertRole(ctx context.Context, id api.ProjectID, roleID api.RoleID, role api.RoleMetadata) (*api.ProjectMetadata, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{
			fmt.Sprintf("roles.%s", roleID): role,
			"updated":                       time.Now().UTC(),
		}})
}

func (s *MongoProjects) RenameRole(ctx context.Context, id api.ProjectID, roleID api.RoleID, name string) (*api.ProjectMetadata, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{fmt.Sprintf("roles.%s.name", roleID): name}})
}

func (s *MongoProjects) DeleteRole(ctx context.Context, id api.ProjectID, roleID api.RoleID) (*api.ProjectMetadata, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id},
		bson.M{"$unset": bson.M{fmt.Sprintf("roles.%s", roleID): ""}})
}

// MongoInvites is the MongoDB-backed Invites implementation.
type MongoInvites struct {
	coll *mongo.Collection
}

// NewMongoInvites wraps the collaboration-invite collection.
func NewMongoInvites(db *mongo.Database) *MongoInvites {
	return &MongoInvites{coll: db.Collection(InvitesCollection)}
}

var _ Invites = (*MongoInvites)(nil)

func (s *MongoInvites) CreatePending(ctx context.Context, invite api.CollaborationInvite) (bool, error) {
	filter := bson.M{
		"sender":    invite.Sender,
		"receiver":  invite.Receiver,
		"projectId": invite.ProjectID,
	}
	result, err := s.coll.UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": invite}, options.Update().SetUpsert(true))
	if err != nil {
		return false, errs.Store(err)
	}
	return result.MatchedCount == 0, nil
}

func (s *MongoInvites) ByID(ctx context.Context, id string) (*api.CollaborationInvite, error) {
	var invite api.CollaborationInvite
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&invite)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrInviteNotFound
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	return &invite, nil
}

func (s *MongoInvites) ListForReceiver(ctx context.Context, username string) ([]api.CollaborationInvite, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"receiver": username})
	if err != nil {
		return nil, errs.Store(err)
	}
	var invites []api.CollaborationInvite
	if err := cursor.All(ctx, &invites); err != nil {
		return nil, errs.Store(err)
	}
	return invites, nil
}

func (s *MongoInvites) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return errs.Store(err)
	}
	return nil
}

// MongoGroups is the MongoDB-backed Groups implementation.
type MongoGroups struct {
	coll *mongo.Collection
}

// NewMongoGroups wraps the group collection.
func NewMongoGroups(db *mongo.Database) *MongoGroups {
	return &MongoGroups{coll: db.Collection(GroupsCollection)}
}

var _ Groups = (*MongoGroups)(nil)

func (s *MongoGroups) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*api.Group, error) {
	var group api.Group
	err := s.coll.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrGroupNotFound
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	return &group, nil
}

func (s *MongoGroups) CreateUnlessExists(ctx context.Context, group api.Group) (bool, error) {
	filter := bson.M{"name": group.Name, "owner": group.Owner}
	result, err := s.coll.UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": group}, options.Update().SetUpsert(true))
	if err != nil {
		return false, errs.Store(err)
	}
	return result.MatchedCount == 0, nil
}

func (s *MongoGroups) ByID(ctx context.Context, id api.GroupID) (*api.Group, error) {
	var group api.Group
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrGroupNotFound
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	return &group, nil
}

func (s *MongoGroups) ByOwner(ctx context.Context, owner string) ([]api.Group, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"owner": owner})
	if err != nil {
		return nil, errs.Store(err)
	}
	var groups []api.Group
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, errs.Store(err)
	}
	return groups, nil
}

func (s *MongoGroups) Rename(ctx context.Context, id api.GroupID, name string) (*api.Group, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"name": name}})
}

func (s *MongoGroups) SetHosts(ctx context.Context, id api.GroupID, hosts []api.ServiceHost) (*api.Group, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"servicesHosts": hosts}})
}

func (s *MongoGroups) SetServiceSettings(ctx context.Context, id api.GroupID, host, settings string) (*api.Group, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id},
		bson.M{"$set": bson.M{fmt.Sprintf("serviceSettings.%s", host): settings}})
}

func (s *MongoGroups) DeleteServiceSettings(ctx context.Context, id api.GroupID, host string) (*api.Group, error) {
	return s.findOneAndUpdate(ctx, bson.M{"id": id},
		bson.M{"$unset": bson.M{fmt.Sprintf("serviceSettings.%s", host): ""}})
}

func (s *MongoGroups) Delete(ctx context.Context, id api.GroupID) (*api.Group, error) {
	var group api.Group
	err := s.coll.FindOneAndDelete(ctx, bson.M{"id": id}).Decode(&group)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrGroupNotFound
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	return &group, nil
}

// MongoUsers is the MongoDB-backed Users implementation.
type MongoUsers struct {
	coll *mongo.Collection
}

// NewMongoUsers wraps the user collection.
func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{coll: db.Collection(UsersCollection)}
}

var _ Users = (*MongoUsers)(nil)

func (s *MongoUsers) MembersOf(ctx context.Context, id api.GroupID) ([]api.User, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"groupId": id})
	if err != nil {
		return nil, errs.Store(err)
	}
	var users []api.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, errs.Store(err)
	}
	return users, nil
}

// MongoHosts is the MongoDB-backed Hosts implementation.
type MongoHosts struct {
	coll *mongo.Collection
}

// NewMongoHosts wraps the authorized-service-host collection.
func NewMongoHosts(db *mongo.Database) *MongoHosts {
	return &MongoHosts{coll: db.Collection(HostsCollection)}
}

var _ Hosts = (*MongoHosts)(nil)

func (s *MongoHosts) List(ctx context.Context) ([]api.AuthorizedServiceHost, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, errs.Store(err)
	}
	var hosts []api.AuthorizedServiceHost
	if err := cursor.All(ctx, &hosts); err != nil {
		return nil, errs.Store(err)
	}
	return hosts, nil
}

func (s *MongoHosts) Authorize(ctx context.Context, host api.AuthorizedServiceHost) (bool, error) {
	result, err := s.coll.UpdateOne(ctx, bson.M{"id": host.ID},
		bson.M{"$setOnInsert": host}, options.Update().SetUpsert(true))
	if err != nil {
		return false, errs.Store(err)
	}
	return result.MatchedCount == 0, nil
}

func (s *MongoHosts) Unauthorize(ctx context.Context, id string) (*api.AuthorizedServiceHost, error) {
	var host api.AuthorizedServiceHost
	err := s.coll.FindOneAndDelete(ctx, bson.M{"id": id}).Decode(&host)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrServiceHostNotFound
	}
	if err != nil {
		return nil, errs.Store(err)
	}
	return &host, nil
}
